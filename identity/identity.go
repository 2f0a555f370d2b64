package identity

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Identity is the authenticated user record attached to every row store request.
type Identity struct {
	ID          string
	DisplayName string
	Token       string
	Domain      string
	Image       string
	AdminKey    string
	Remember    bool
	Email       string
	AltID       string
	Validated   *bool
}

// Field returns the identity value for a management column name, e.g. 'email' or 'altid'.
func (id Identity) Field(name string) string {
	switch strings.ToLower(name) {
	case "id":
		return id.ID
	case "name", "displayname":
		return id.DisplayName
	case "token":
		return id.Token
	case "domain":
		return id.Domain
	case "image":
		return id.Image
	case "email":
		return id.Email
	case "altid":
		return id.AltID
	default:
		return ""
	}
}

func (id Identity) IsAdmin() bool {
	return id.AdminKey != ""
}

// Session holds the identity of the currently logged in user.
type Session struct {
	sync.RWMutex
	identity *Identity
}

func NewSession(identity *Identity) *Session {
	return &Session{
		identity: identity,
	}
}

// Identity returns a copy of the current identity or an empty identity if nobody is logged in.
func (s *Session) Identity() Identity {
	s.RLock()
	defer s.RUnlock()

	if s.identity == nil {
		return Identity{}
	}

	return *s.identity
}

func (s *Session) Set(identity Identity) {
	s.Lock()
	defer s.Unlock()

	s.identity = &identity
}

func (s *Session) Clear() {
	s.Lock()
	defer s.Unlock()

	s.identity = nil
}

// Login builds an identity from a user name and token. A user of the form 'admin' or 'admin <user>'
// logs in as administrator, in which case the token is the admin HMAC key.
func Login(user, token string, remember bool) (*Identity, error) {
	user = strings.ToLower(strings.TrimSpace(user))
	token = strings.TrimSpace(token)

	if user == "" {
		return nil, fmt.Errorf("please provide user name for login")
	}

	if token == "" {
		return nil, fmt.Errorf("please provide token for login")
	}

	adminKey := ""
	if regexp.MustCompile(`^admin(\s|$)`).MatchString(user) {
		user = strings.TrimSpace(user[5:])
		adminKey = token
		token = AdminToken(adminKey, "admin")
	}

	email := ""
	if strings.Index(user, "@") > 0 {
		email = user
	}

	return profile(user, email, user, token, "", "", adminKey, remember)
}

// FromCookie builds an identity from a 'user:token' server cookie.
func FromCookie(cookie string) (*Identity, error) {
	user, token, _ := strings.Cut(cookie, ":")
	if user == "" || token == "" {
		return nil, fmt.Errorf("invalid login cookie")
	}

	return Login(user, token, false)
}

// FormatName rearranges 'First Middle Last' as 'Last, First Middle'.
func FormatName(name string) string {
	tokens := strings.Fields(name)
	if len(tokens) > 1 {
		return tokens[len(tokens)-1] + ", " + strings.Join(tokens[:len(tokens)-1], " ")
	}

	return name
}

func profile(id, email, name, token, domain, image, adminKey string, remember bool) (*Identity, error) {
	if adminKey == "" && id == "" && email == "" {
		return nil, fmt.Errorf("no user id or email specified")
	}

	identity := Identity{
		ID:       id,
		Email:    email,
		AltID:    "",
		Token:    token,
		Domain:   domain,
		Image:    image,
		AdminKey: adminKey,
		Remember: remember,
	}

	if identity.ID == "" {
		identity.ID = email
	}

	identity.DisplayName = FormatName(name)
	if identity.DisplayName == "" {
		identity.DisplayName = identity.ID
	}

	if identity.DisplayName == "" {
		identity.DisplayName = identity.Email
	}

	return &identity, nil
}
