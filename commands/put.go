package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/uhppoted/uhppoted-app-sheetdb/rowstore"
)

var PutCmd = Put{
	command: command{
		url:   "",
		sheet: "",
		debug: false,
	},

	file: "",
}

type Put struct {
	command
	file        string
	create      bool
	nooverwrite bool
	self        bool
	submit      bool
}

func (c *Put) FlagSet() *flag.FlagSet {
	flagset := c.flagset("put")

	flagset.StringVar(&c.file, "file", c.file, "TSV file. The header row defines the sheet columns")
	flagset.BoolVar(&c.create, "create", c.create, "Creates the sheet (if it does not exist) before uploading the rows")
	flagset.BoolVar(&c.nooverwrite, "nooverwrite", c.nooverwrite, "Does not overwrite existing rows")
	flagset.BoolVar(&c.self, "self", c.self, "Writes the first row of the TSV file as the logged in user's row")
	flagset.BoolVar(&c.submit, "submit", c.submit, "Records the submission time for the rows")

	return flagset
}

func (c *Put) Execute(args ...any) error {
	options := args[0].(*Options)

	c.debug = options.Debug

	if err := c.validate(); err != nil {
		return err
	}

	if strings.TrimSpace(c.file) == "" {
		return fmt.Errorf("--file is a required option")
	}

	f, err := os.Open(c.file)
	if err != nil {
		return err
	}

	defer f.Close()

	headers, objects, err := tsvToObjects(f)
	if err != nil {
		return fmt.Errorf("Invalid TSV file (%v)", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sheet, t, err := c.connect(ctx, headers)
	if err != nil {
		return err
	}

	defer t.Close()

	opts := rowstore.PutOptions{
		NoOverwrite: c.nooverwrite,
		Submit:      c.submit,
	}

	if c.self {
		if len(objects) == 0 {
			return fmt.Errorf("TSV file %v has no rows", c.file)
		}

		call, err := sheet.AuthPutRow(objects[0], opts, c.create)
		if _, err := await(ctx, call, err); err != nil {
			return err
		}

		infof("Uploaded row for %v to sheet %v", c.user, sheet.Name())
		return nil
	}

	if c.create {
		call, err := sheet.CreateSheet()
		if _, err := await(ctx, call, err); err != nil {
			return fmt.Errorf("Error creating sheet %v (%v)", c.sheet, err)
		}
	}

	calls := []*rowstore.Call[rowstore.Object]{}
	for _, object := range objects {
		call, err := sheet.PutRow(object, opts)
		if err != nil {
			return fmt.Errorf("Invalid row %v (%v)", object, err)
		}

		calls = append(calls, call)
	}

	errors := 0
	for _, call := range calls {
		if _, err := await(ctx, call, nil); err != nil {
			warnf("%v", err)
			errors++
		}
	}

	if errors > 0 {
		return fmt.Errorf("%v of %v rows could not be uploaded", errors, len(calls))
	}

	infof("Uploaded TSV file %v to sheet %v (%v rows)", c.file, c.sheet, len(calls))

	return nil
}

func (c *Put) Name() string {
	return "put"
}

func (c *Put) Description() string {
	return "Uploads a TSV file to a row store sheet"
}

func (c *Put) Usage() string {
	return "--url <url> --sheet <sheet> --file <file>"
}

func (c *Put) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] put [options] --url <URL> --sheet <sheet> --file <file>\n", APP)
	fmt.Println()
	fmt.Println("  Uploads the rows in a TSV file to a row store sheet. Rows are written concurrently and")
	fmt.Println("  each row must include an 'id' column.")
	fmt.Println()

	helpOptions(c.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Println()
	fmt.Println(`    uhppoted-app-sheetdb --debug put --url "https://script.google.com/macros/s/AKfycbx/exec" \`)
	fmt.Println(`                                     --sheet scores --user admin --token qwerty \`)
	fmt.Println(`                                     --create --file "scores.tsv"`)
	fmt.Println()
}
