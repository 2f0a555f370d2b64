package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const USERINFO = "https://www.googleapis.com/auth/userinfo.email"

// Config loads the OAuth2 client configuration from a Google 'credentials.json' file.
func Config(credentials string, scope ...string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentials)
	if err != nil {
		return nil, err
	}

	return google.ConfigFromJSON(b, scope...)
}

// TokensFile returns the path of the token cache for a credentials file and scope,
// e.g. <workdir>/credentials.userinfo.
func TokensFile(workdir, credentials, scope string) string {
	_, file := filepath.Split(credentials)
	name := strings.TrimSuffix(file, filepath.Ext(file))
	suffix := "tokens"

	if ix := strings.LastIndexAny(scope, "/"); ix >= 0 && ix < len(scope)-1 {
		suffix = strings.SplitN(scope[ix+1:], ".", 2)[0]
	}

	return filepath.Join(workdir, fmt.Sprintf("%s.%s", name, suffix))
}

// Authorize returns an HTTP client authorised with the cached OAuth2 token for the scope. The token
// is created by the 'authorise' command.
func Authorize(ctx context.Context, credentials, scope, tokens string) (*http.Client, error) {
	config, err := Config(credentials, scope)
	if err != nil {
		return nil, err
	}

	token, err := TokenFromFile(tokens)
	if err != nil {
		return nil, fmt.Errorf("no authorisation token for %v - run 'authorise' first (%w)", scope, err)
	}

	return config.Client(ctx, token), nil
}

// TokenFromFile retrieves a token from a local file.
func TokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	token := oauth2.Token{}
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, err
	}

	return &token, nil
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth2 token (%w)", err)
	}

	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}

// GoogleProfile fetches the Google account profile for an authorised client and converts it to an
// identity.
func GoogleProfile(ctx context.Context, client *http.Client) (*Identity, error) {
	service, err := gauth.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Google userinfo client (%w)", err)
	}

	userinfo, err := service.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Google profile (%w)", err)
	}

	return Profile(userinfo)
}

// Profile converts a Google userinfo record to an identity.
func Profile(userinfo *gauth.Userinfo) (*Identity, error) {
	if userinfo == nil {
		return nil, fmt.Errorf("no user profile")
	}

	email := strings.ToLower(userinfo.Email)

	identity, err := profile(userinfo.Id, email, userinfo.Name, "", userinfo.Hd, userinfo.Picture, "", false)
	if err != nil {
		return nil, err
	}

	identity.Validated = userinfo.VerifiedEmail

	return identity, nil
}
