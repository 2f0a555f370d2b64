package commands

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/uhppoted/uhppoted-app-sheetdb/rowstore"
)

var UpdateCmd = Update{
	command: command{
		url:   "",
		sheet: "",
		debug: false,
	},
}

type Update struct {
	command
	id      string
	values  setters
}

// setters accumulates repeated --set column=value flags.
type setters []string

func (s *setters) String() string {
	return strings.Join(*s, ",")
}

func (s *setters) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("invalid --set '%v' (expected column=value)", v)
	}

	*s = append(*s, v)

	return nil
}

func (c *Update) FlagSet() *flag.FlagSet {
	flagset := c.flagset("update")

	flagset.StringVar(&c.id, "id", c.id, "Row ID. Defaults to the logged in user")
	flagset.Var(&c.values, "set", "column=value to update (may be repeated)")

	return flagset
}

func (c *Update) Execute(args ...any) error {
	options := args[0].(*Options)

	c.debug = options.Debug

	if err := c.validate(); err != nil {
		return err
	}

	if len(c.values) == 0 {
		return fmt.Errorf("at least one --set column=value is required")
	}

	object := rowstore.Object{}
	columns := []string{}
	for _, v := range c.values {
		column, value, _ := strings.Cut(v, "=")
		column = strings.TrimSpace(column)

		object[column] = value
		columns = append(columns, column)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The column layout is not known until the first response so fetch the row first.
	sheet, t, err := c.connect(ctx, nil)
	if err != nil {
		return err
	}

	defer t.Close()

	get, err := sheet.GetRow(c.id)
	row, err := await(ctx, get, err)
	if err != nil {
		return err
	} else if len(row) == 0 {
		return fmt.Errorf("no row for ID '%v'", c.id)
	}

	object[rowstore.ColumnID] = row[rowstore.ColumnID]

	call, err := sheet.UpdateRow(object, rowstore.UpdateOptions{Get: true})
	updated, err := await(ctx, call, err)
	if err != nil {
		return err
	}

	for _, column := range columns {
		debugf("%v: %v -> %v", column, row[column], updated[column])
	}

	infof("Updated row %v in sheet %v", object[rowstore.ColumnID], sheet.Name())

	return nil
}

func (c *Update) Name() string {
	return "update"
}

func (c *Update) Description() string {
	return "Updates individual columns of a row in a row store sheet"
}

func (c *Update) Usage() string {
	return "--url <url> --sheet <sheet> [--id <id>] --set <column=value> ..."
}

func (c *Update) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] update [options] --url <URL> --sheet <sheet> --set <column=value> ...\n", APP)
	fmt.Println()
	fmt.Println("  Updates the listed columns of a row. The 'id' and 'Timestamp' columns cannot be updated.")
	fmt.Println()

	helpOptions(c.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Println()
	fmt.Println(`    uhppoted-app-sheetdb update --url "https://script.google.com/macros/s/AKfycbx/exec" \`)
	fmt.Println(`                                --sheet scores --user admin --token qwerty \`)
	fmt.Println(`                                --id u1 --set score=9 --set grade=A`)
	fmt.Println()
}
