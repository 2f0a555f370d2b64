package commands

import (
	"flag"
	"fmt"
	"strings"

	"github.com/uhppoted/uhppoted-app-sheetdb/identity"
)

var TokenCmd = Token{}

// Token prints the HMAC tokens issued to users of a row store with a given key.
type Token struct {
	key     string
	admin   bool
	flagset *flag.FlagSet
}

// FlagSet is retained so that the user list can be recovered from the parsed arguments.
func (c *Token) FlagSet() *flag.FlagSet {
	if c.flagset == nil {
		c.flagset = flag.NewFlagSet("token", flag.ExitOnError)

		c.flagset.StringVar(&c.key, "key", c.key, "HMAC key shared with the row store")
		c.flagset.BoolVar(&c.admin, "admin", c.admin, "Generates admin tokens rather than user tokens")
	}

	return c.flagset
}

func (c *Token) Execute(args ...any) error {
	if strings.TrimSpace(c.key) == "" {
		return fmt.Errorf("--key is a required option")
	}

	users := c.FlagSet().Args()

	if len(users) == 0 {
		users = []string{"admin"}
	}

	for _, user := range users {
		if c.admin {
			fmt.Printf("  %-24v %v\n", user, identity.AdminToken(c.key, user))
		} else {
			fmt.Printf("  %-24v %v\n", user, identity.UserToken(c.key, user))
		}
	}

	return nil
}

func (c *Token) Name() string {
	return "token"
}

func (c *Token) Description() string {
	return "Generates the access tokens for a list of users"
}

func (c *Token) Usage() string {
	return "--key <key> [--admin] <user> ..."
}

func (c *Token) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s token --key <key> [--admin] <user> ...\n", APP)
	fmt.Println()
	fmt.Println("  Prints the HMAC token for each user, to be distributed to the users for login.")
	fmt.Println()

	helpOptions(c.FlagSet())

	fmt.Println()
}
