package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

var RosterCmd = Roster{
	command: command{
		url:   "",
		sheet: "",
		debug: false,
	},
}

type Roster struct {
	command
}

func (c *Roster) FlagSet() *flag.FlagSet {
	return c.flagset("roster")
}

func (c *Roster) Execute(args ...any) error {
	options := args[0].(*Options)

	c.debug = options.Debug

	if err := c.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sheet, t, err := c.connect(ctx, nil)
	if err != nil {
		return err
	}

	defer t.Close()

	call, err := sheet.LoadCache()
	if _, err := await(ctx, call, err); err != nil {
		return fmt.Errorf("unable to load sheet %v (%v)", sheet.Name(), err)
	} else if !sheet.Cached() {
		return fmt.Errorf("no rows returned for sheet %v", sheet.Name())
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	for _, entry := range sheet.Roster() {
		ts, _ := sheet.Timestamp(entry.ID)
		fmt.Fprintf(w, "%v\t%v\t%v\n", entry.Name, entry.ID, format(ts))
	}

	return w.Flush()
}

func (c *Roster) Name() string {
	return "roster"
}

func (c *Roster) Description() string {
	return "Lists the names and IDs of the submitted rows in a row store sheet"
}

func (c *Roster) Usage() string {
	return "--url <url> --sheet <sheet>"
}

func (c *Roster) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] roster [options] --url <URL> --sheet <sheet>\n", APP)
	fmt.Println()
	fmt.Println("  Loads all the rows of a sheet and lists the roster, ordered by name. Requires admin.")
	fmt.Println()

	helpOptions(c.FlagSet())

	fmt.Println()
}

func format(ms float64) string {
	if ms == 0 {
		return ""
	}

	return time.UnixMilli(int64(ms)).UTC().Format("2006-01-02 15:04:05")
}
