package main

import (
	"flag"
	"fmt"
	"os"

	uhppoted "github.com/uhppoted/uhppoted-lib/command"

	"github.com/uhppoted/uhppoted-app-sheetdb/commands"
	"github.com/uhppoted/uhppoted-app-sheetdb/log"
)

var cli = []uhppoted.Command{
	&commands.VersionCmd,
	&commands.AuthoriseCmd,
	&commands.TokenCmd,
	&commands.GetCmd,
	&commands.PutCmd,
	&commands.UpdateCmd,
	&commands.RosterCmd,
	&commands.ServeCmd,
}

var options = commands.Options{
	Debug: false,
}

var help = uhppoted.NewHelp(commands.APP, cli, nil)

func main() {
	flag.BoolVar(&options.Debug, "debug", options.Debug, "Enable debugging information")
	flag.Parse()

	log.SetDebug(options.Debug)

	cmd, err := uhppoted.Parse(cli, nil, help)
	if err != nil {
		fmt.Printf("\nError parsing command line: %v\n\n", err)
		os.Exit(1)
	}

	if cmd == nil {
		help.Execute()
		os.Exit(1)
	}

	if err = cmd.Execute(&options); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
