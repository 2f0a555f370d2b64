package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/uhppoted/uhppoted-app-sheetdb/identity"
	"github.com/uhppoted/uhppoted-app-sheetdb/store"
)

var ServeCmd = Serve{
	workdir:     DEFAULT_WORKDIR,
	credentials: DEFAULT_CREDENTIALS,
	bind:        DEFAULT_BIND,
	path:        "/exec",
}

// Serve runs a row store web app backed by a Google Sheets spreadsheet or, with --memory, by an
// in-memory table set.
type Serve struct {
	workdir     string
	credentials string
	url         string
	memory      bool
	key         string
	bind        string
	path        string
	debug       bool
}

func (c *Serve) FlagSet() *flag.FlagSet {
	flagset := flag.NewFlagSet("serve", flag.ExitOnError)

	flagset.StringVar(&c.workdir, "workdir", c.workdir, "Directory for working files (tokens, revisions, etc)")
	flagset.StringVar(&c.credentials, "credentials", c.credentials, "Path for the 'credentials.json' file")
	flagset.StringVar(&c.url, "url", c.url, "Spreadsheet URL")
	flagset.BoolVar(&c.memory, "memory", c.memory, "Serves an in-memory store rather than a spreadsheet")
	flagset.StringVar(&c.key, "key", c.key, "HMAC key for user and admin tokens. Requests are not authenticated if not set")
	flagset.StringVar(&c.bind, "bind", c.bind, "HTTP bind address")
	flagset.StringVar(&c.path, "path", c.path, "HTTP path for the web app")

	return flagset
}

func (c *Serve) Execute(args ...any) error {
	options := args[0].(*Options)

	c.debug = options.Debug

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := c.backend(ctx)
	if err != nil {
		return err
	}

	if c.key == "" {
		warnf("no --key - requests will not be authenticated")
	}

	s := store.NewStore(backend, c.key)
	srv := &http.Server{
		Addr:              c.bind,
		Handler:           s.Handler(c.path),
		ReadHeaderTimeout: 10 * time.Second,
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	errs := make(chan error, 1)
	go func() {
		infof("listening on %v%v", c.bind, c.path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case <-interrupt:
		infof("shutting down")

	case err := <-errs:
		return err
	}

	shutdown, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()

	return srv.Shutdown(shutdown)
}

func (c *Serve) backend(ctx context.Context) (store.Backend, error) {
	if c.memory {
		infof("serving in-memory store")
		return store.NewMemory(), nil
	}

	if strings.TrimSpace(c.credentials) == "" {
		return nil, fmt.Errorf("--credentials is a required option")
	}

	if strings.TrimSpace(c.url) == "" {
		return nil, fmt.Errorf("--url is a required option (or --memory)")
	}

	id, err := spreadsheetID(c.url)
	if err != nil {
		return nil, err
	}

	client, err := identity.Authorize(ctx, c.credentials, SHEETS, tokens(c.workdir, c.credentials, SHEETS))
	if err != nil {
		return nil, fmt.Errorf("authentication/authorization error (%v)", err)
	}

	google, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create new Sheets client (%v)", err)
	}

	spreadsheet, err := getSpreadsheet(google, id, ctx)
	if err != nil {
		return nil, err
	}

	if spreadsheet.Properties != nil {
		infof("serving spreadsheet '%v' (%v sheets)", spreadsheet.Properties.Title, len(spreadsheet.Sheets))
	}

	c.revision(ctx, id)

	return store.NewSheets(google, id), nil
}

// revision logs the spreadsheet's latest Drive revision if a Drive token is available.
func (c *Serve) revision(ctx context.Context, id string) {
	client, err := identity.Authorize(ctx, c.credentials, DRIVE, tokens(c.workdir, c.credentials, DRIVE))
	if err != nil {
		debugf("no Drive authorisation - skipping revision check (%v)", err)
		return
	}

	gdrive, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		warnf("unable to create new Drive client (%v)", err)
		return
	}

	if v, err := getVersion(gdrive, id, ctx); err != nil {
		warnf("%v", err)
	} else {
		infof("spreadsheet revision %v (modified %v)", v.revision, v.modified.Format(time.RFC3339))
	}
}

func (c *Serve) Name() string {
	return "serve"
}

func (c *Serve) Description() string {
	return "Runs a row store web app backed by a Google Sheets spreadsheet"
}

func (c *Serve) Usage() string {
	return "--credentials <file> --url <url> --key <key> [--bind <address>]"
}

func (c *Serve) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] serve [options] --url <URL> --key <key>\n", APP)
	fmt.Println()
	fmt.Println("  Serves a spreadsheet as a row store: each sheet is a table with a header row and each")
	fmt.Println("  row is identified by its 'id' column. Requires a 'sheets' authorisation token.")
	fmt.Println()

	helpOptions(c.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Println(`    uhppoted-app-sheetdb serve --url "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms" \`)
	fmt.Println(`                               --key qwerty --bind 0.0.0.0:8080`)
	fmt.Println()
}
