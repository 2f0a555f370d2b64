package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"

	"golang.org/x/oauth2"

	"github.com/uhppoted/uhppoted-app-sheetdb/identity"
)

var AuthoriseCmd = Authorise{
	workdir:     DEFAULT_WORKDIR,
	credentials: DEFAULT_CREDENTIALS,
	scope:       "sheets",
	bind:        "localhost:8181",
	debug:       false,
}

type Authorise struct {
	workdir     string
	credentials string
	scope       string
	bind        string
	debug       bool
}

var scopes = map[string]string{
	"sheets":   SHEETS,
	"drive":    DRIVE,
	"userinfo": identity.USERINFO,
}

func (cmd *Authorise) Name() string {
	return "authorise"
}

func (cmd *Authorise) Description() string {
	return "Authorises uhppoted-app-sheetdb to access Google Sheets, Drive or the Google user profile"
}

func (cmd *Authorise) Usage() string {
	return "--credentials <file> --scope <sheets|drive|userinfo>"
}

func (cmd *Authorise) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] authorise [options] --scope <sheets|drive|userinfo>\n", APP)
	fmt.Println()
	fmt.Println("  Runs the Google OAuth2 consent flow in a browser and saves the resulting token to the")
	fmt.Println("  working directory. The 'userinfo' scope also displays the authorised user's profile.")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Println(`    uhppoted-app-sheetdb authorise --credentials "credentials.json" --scope sheets`)
	fmt.Println()
}

func (cmd *Authorise) FlagSet() *flag.FlagSet {
	flagset := flag.NewFlagSet("authorise", flag.ExitOnError)

	flagset.StringVar(&cmd.workdir, "workdir", cmd.workdir, "Directory for working files (tokens, revisions, etc)")
	flagset.StringVar(&cmd.credentials, "credentials", cmd.credentials, "Path for the 'credentials.json' file")
	flagset.StringVar(&cmd.scope, "scope", cmd.scope, "OAuth2 scope (sheets, drive or userinfo)")
	flagset.StringVar(&cmd.bind, "bind", cmd.bind, "Local address for the OAuth2 redirect listener")

	return flagset
}

func (cmd *Authorise) Execute(args ...any) error {
	options := args[0].(*Options)

	cmd.debug = options.Debug

	// ... check parameters
	if strings.TrimSpace(cmd.credentials) == "" {
		return fmt.Errorf("--credentials is a required option")
	}

	scope, ok := scopes[strings.ToLower(strings.TrimSpace(cmd.scope))]
	if !ok {
		return fmt.Errorf("invalid --scope '%v' (expected sheets, drive or userinfo)", cmd.scope)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	file := tokens(cmd.workdir, cmd.credentials, scope)
	token, err := authenticate(ctx, cmd.credentials, scope, cmd.bind)
	if err != nil {
		return fmt.Errorf("Authorisation error (%v)", err)
	} else if token == nil {
		return nil
	}

	if err := identity.SaveToken(file, token); err != nil {
		return err
	}

	infof("Saved %v authorisation token to %v", cmd.scope, file)

	if scope == identity.USERINFO {
		client, err := identity.Authorize(ctx, cmd.credentials, scope, file)
		if err != nil {
			return err
		}

		id, err := identity.GoogleProfile(ctx, client)
		if err != nil {
			return err
		}

		fmt.Printf("  %-10v %v\n", "ID", id.ID)
		fmt.Printf("  %-10v %v\n", "name", id.DisplayName)
		fmt.Printf("  %-10v %v\n", "email", id.Email)
		fmt.Printf("  %-10v %v\n", "verified", id.Validated)
	}

	return nil
}

// authenticate runs the OAuth2 authorisation code flow against a local redirect listener. Returns
// a nil token if cancelled with CTRL-C.
func authenticate(ctx context.Context, credentials, scope, bind string) (*oauth2.Token, error) {
	config, err := identity.Config(credentials, scope)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return nil, err
	}

	config.RedirectURL = fmt.Sprintf("http://%v/callback", listener.Addr())

	authorised := make(chan string, 1)
	mux := http.NewServeMux()
	url := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)

	mux.HandleFunc("/", func(w http.ResponseWriter, rq *http.Request) {
		http.Redirect(w, rq, url, http.StatusFound)
	})

	mux.HandleFunc("/callback", func(w http.ResponseWriter, rq *http.Request) {
		state := rq.FormValue("state")
		code := rq.FormValue("code")

		debugf("OAuth2 callback  state:%v  scope:%v", state, rq.FormValue("scope"))

		if state != "state-token" || code == "" {
			http.Error(w, "Invalid authorisation response", http.StatusBadRequest)
			return
		}

		fmt.Fprintln(w, "Authorised - you can close this window")

		select {
		case authorised <- code:
		default:
		}
	})

	srv := &http.Server{
		Handler: mux,
	}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			warnf("%v", err)
		}
	}()

	defer func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			warnf("%v", err)
		}
	}()

	// ... CTRL-C handler
	interrupt := make(chan os.Signal, 1)

	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	// ... open authorisation URL in browser
	local := fmt.Sprintf("http://%v/", listener.Addr())
	if err := browse(local); err != nil {
		fmt.Printf("Could not open authorisation page in your browser - please open %v manually\n", local)
	}

	// ... wait for authorisation
	select {
	case <-interrupt:
		fmt.Printf("\n.. cancelled\n\n")
		return nil, nil

	case <-ctx.Done():
		return nil, ctx.Err()

	case code := <-authorised:
		token, err := config.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from web (%v)", err)
		}

		return token, nil
	}
}

func browse(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()

	default:
		return exec.Command("xdg-open", url).Start()
	}
}
