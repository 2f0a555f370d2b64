package commands

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"

	"github.com/uhppoted/uhppoted-app-sheetdb/identity"
	"github.com/uhppoted/uhppoted-app-sheetdb/log"
	"github.com/uhppoted/uhppoted-app-sheetdb/rowstore"
	"github.com/uhppoted/uhppoted-app-sheetdb/transport"
)

const APP = "uhppoted-app-sheetdb"

const (
	SHEETS = "https://www.googleapis.com/auth/spreadsheets"
	DRIVE  = "https://www.googleapis.com/auth/drive.readonly"
)

const TIMEOUT = 30 * time.Second

type Options struct {
	Debug bool
}

// command holds the options common to the commands that talk to a row store web app.
type command struct {
	url   string
	sheet string
	user  string
	token string
	jsonp bool
	debug bool
}

func (c *command) flagset(name string) *flag.FlagSet {
	flagset := flag.NewFlagSet(name, flag.ExitOnError)

	flagset.StringVar(&c.url, "url", c.url, "Row store web app URL")
	flagset.StringVar(&c.sheet, "sheet", c.sheet, "Sheet name")
	flagset.StringVar(&c.user, "user", c.user, "User ID, or 'admin [user]' for an administrator")
	flagset.StringVar(&c.token, "token", c.token, "User token, or the admin key for an administrator")
	flagset.BoolVar(&c.jsonp, "jsonp", c.jsonp, "Sends requests as JSONP GET requests rather than form POST requests")

	return flagset
}

func (c *command) validate() error {
	if strings.TrimSpace(c.url) == "" {
		return fmt.Errorf("--url is a required option")
	}

	if strings.TrimSpace(c.sheet) == "" {
		return fmt.Errorf("--sheet is a required option")
	}

	return nil
}

// connect returns a row store client for the command's web app, sheet and user.
func (c *command) connect(ctx context.Context, headers []string) (*rowstore.Sheet, *transport.Transport, error) {
	session := identity.NewSession(nil)

	if strings.TrimSpace(c.user) != "" {
		id, err := identity.Login(c.user, c.token, false)
		if err != nil {
			return nil, nil, err
		}

		session.Set(*id)
	}

	preHeaders, fields := split(headers)

	t := transport.NewTransport(ctx, nil)
	sheet, err := rowstore.NewSheet(t, session, rowstore.Config{
		URL:        c.url,
		Sheet:      c.sheet,
		PreHeaders: preHeaders,
		Fields:     fields,
		JSONP:      c.jsonp,
	})

	if err != nil {
		t.Close()
		return nil, nil, err
	}

	debugf("connected to %v sheet '%v' (jsonp:%v)", c.url, c.sheet, c.jsonp)

	return sheet, t, nil
}

// split divides a header row into the leading management columns and the remaining fields.
func split(headers []string) ([]string, []string) {
	management := map[string]bool{
		"id":        true,
		"name":      true,
		"email":     true,
		"altid":     true,
		"Timestamp": true,
	}

	ix := 0
	for ix < len(headers) && management[headers[ix]] {
		ix++
	}

	return headers[:ix], headers[ix:]
}

func await[T any](ctx context.Context, call *rowstore.Call[T], err error) (T, error) {
	var zero T

	if err != nil {
		return zero, err
	}

	ctx, cancel := context.WithTimeout(ctx, TIMEOUT)
	defer cancel()

	result, err := call.Wait(ctx)
	if err != nil {
		return zero, err
	}

	for _, m := range result.Status.Messages {
		debugf("%v", m)
	}

	if result.OutOfSequence {
		debugf("response received out of sequence")
	}

	return result.Value, result.Err()
}

type version struct {
	revision string
	modified time.Time
}

func getVersion(gdrive *drive.Service, fileId string, ctx context.Context) (*version, error) {
	page := ""
	latest := version{
		revision: "",
		modified: time.Time{},
	}

	for {
		call := drive.NewRevisionsService(gdrive).List(fileId).Context(ctx)
		if page != "" {
			call.PageToken(page)
		}

		revisions, err := call.Do()
		if err != nil {
			return nil, err
		}

		for _, revision := range revisions.Revisions {
			datetime, err := time.Parse("2006-01-02T15:04:05.999Z", revision.ModifiedTime)
			if err != nil {
				return nil, err
			}

			if latest.modified.Before(datetime) {
				latest.revision = revision.Id
				latest.modified = datetime
			}
		}

		if page = revisions.NextPageToken; page == "" {
			break
		}
	}

	if latest.modified.IsZero() {
		return nil, fmt.Errorf("Unable to identify latest revision for file ID %s", fileId)
	}

	return &latest, nil
}

func getSpreadsheet(google *sheets.Service, id string, ctx context.Context) (*sheets.Spreadsheet, error) {
	spreadsheet, err := google.Spreadsheets.Get(id).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("Failed to fetch spreadsheet (%v)", err)
	}

	return spreadsheet, nil
}

func spreadsheetID(url string) (string, error) {
	match := regexp.MustCompile(`^https://docs.google.com/spreadsheets/d/(.*?)(?:/.*)?$`).FindStringSubmatch(url)
	if len(match) < 2 {
		return "", fmt.Errorf("Invalid spreadsheet URL - expected something like 'https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms'")
	}

	return match[1], nil
}

func tokens(workdir string, credentials string, scope string) string {
	return identity.TokensFile(filepath.Join(workdir, ".google"), credentials, scope)
}

func helpOptions(flagset *flag.FlagSet) {
	flagset.VisitAll(func(f *flag.Flag) {
		fmt.Printf("    --%-13s %s\n", f.Name, f.Usage)
	})

	fmt.Println()
	fmt.Println("  Options:")
	for _, f := range global() {
		fmt.Printf("    --%-13s %s\n", f.Name, f.Usage)
	}
}

// global returns the application's own top level flags, i.e. excluding the flags glog registers on
// the default flag set.
func global() []*flag.Flag {
	flags := []*flag.Flag{}

	flag.VisitAll(func(f *flag.Flag) {
		if !glogFlags[f.Name] {
			flags = append(flags, f)
		}
	})

	return flags
}

var glogFlags = map[string]bool{
	"alsologtostderr":  true,
	"log_backtrace_at": true,
	"log_dir":          true,
	"log_link":         true,
	"logbuflevel":      true,
	"logtostderr":      true,
	"stderrthreshold":  true,
	"v":                true,
	"vmodule":          true,
}

func normalise(v string) string {
	return strings.ToLower(strings.ReplaceAll(v, " ", ""))
}

func debugf(format string, args ...any) {
	log.Debugf(format, args...)
}

func infof(format string, args ...any) {
	log.Infof(format, args...)
}

func warnf(format string, args ...any) {
	log.Warnf(format, args...)
}
