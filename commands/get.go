package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/uhppoted/uhppoted-app-sheetdb/rowstore"
)

var GetCmd = Get{
	command: command{
		url:   "",
		sheet: "",
		debug: false,
	},

	file: time.Now().Format("2006-01-02T150405.tsv"),
}

type Get struct {
	command
	id   string
	all  bool
	file string
}

func (cmd *Get) Name() string {
	return "get"
}

func (cmd *Get) Description() string {
	return "Retrieves one or all rows from a row store sheet and stores them to a local TSV file"
}

func (cmd *Get) Usage() string {
	return "--url <url> --sheet <sheet> [--id <id> | --all] --file <file>"
}

func (cmd *Get) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] get [options] --url <URL> --sheet <sheet> [--id <id> | --all] --file <file>\n", APP)
	fmt.Println()
	fmt.Println("  Downloads rows from a row store sheet to a TSV file. Without --id or --all, retrieves the row")
	fmt.Println("  for the logged in user.")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Println(`    uhppoted-app-sheetdb --debug get --url "https://script.google.com/macros/s/AKfycbx/exec" \`)
	fmt.Println(`                                     --sheet scores --user admin --token qwerty \`)
	fmt.Println(`                                     --all --file "scores.tsv"`)
	fmt.Println()
}

func (cmd *Get) FlagSet() *flag.FlagSet {
	flagset := cmd.flagset("get")

	flagset.StringVar(&cmd.id, "id", cmd.id, "Row ID. Defaults to the logged in user")
	flagset.BoolVar(&cmd.all, "all", cmd.all, "Retrieves all rows (requires admin)")
	flagset.StringVar(&cmd.file, "file", cmd.file, "TSV file name. Defaults to '<yyyy-mm-ddTHHmmss>.tsv'")

	return flagset
}

func (cmd *Get) Execute(args ...any) error {
	options := args[0].(*Options)

	cmd.debug = options.Debug

	// ... check parameters
	if err := cmd.validate(); err != nil {
		return err
	}

	if strings.TrimSpace(cmd.file) == "" {
		return fmt.Errorf("--file is a required option")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sheet, t, err := cmd.connect(ctx, nil)
	if err != nil {
		return err
	}

	defer t.Close()

	// ... fetch
	objects := []rowstore.Object{}

	if cmd.all {
		call, err := sheet.GetAll()
		rows, err := await(ctx, call, err)
		if err != nil {
			return fmt.Errorf("unable to retrieve rows from sheet (%v)", err)
		}

		ids := []string{}
		for id := range rows {
			ids = append(ids, id)
		}

		slices.Sort(ids)

		for _, id := range ids {
			objects = append(objects, rows[id])
		}
	} else {
		call, err := sheet.GetRow(cmd.id)
		row, err := await(ctx, call, err)
		if err != nil {
			return fmt.Errorf("unable to retrieve row from sheet (%v)", err)
		} else if len(row) == 0 {
			return fmt.Errorf("no row for ID '%v'", cmd.id)
		}

		objects = append(objects, row)
	}

	debugf("retrieved %v rows from sheet '%v'", len(objects), sheet.Name())

	// ... write to file
	tmp, err := os.CreateTemp(os.TempDir(), "sheetdb")
	if err != nil {
		return err
	}

	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if err := objectsToTSV(tmp, sheet.Schema().Headers(), objects); err != nil {
		return fmt.Errorf("error creating TSV file (%v)", err)
	}

	tmp.Close()

	dir := filepath.Dir(cmd.file)
	if err := os.MkdirAll(dir, 0770); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), cmd.file); err != nil {
		return err
	}

	infof("Retrieved %v rows to file %s", len(objects), cmd.file)

	return nil
}
