package identity

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"regexp"
	"time"
)

const TruncateDigest = 8

// HMACToken returns the base64 encoded HMAC-MD5 digest of the message, truncated to 8 characters.
func HMACToken(key, message string) string {
	mac := hmac.New(md5.New, []byte(key))
	mac.Write([]byte(message))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))[:TruncateDigest]
}

func UserToken(key, userID string) string {
	return HMACToken(key, "id:"+userID)
}

func AdminToken(key, userID string) string {
	return HMACToken(key, "admin:"+userID)
}

func SiteKey(key, site string) string {
	return HMACToken(key, "site:"+site)
}

// AuthToken returns the role-scoped token for a user, optionally prefixed with ':user:role:sites:'.
func AuthToken(key, userID, role, sites string, prefixed bool) string {
	prefix := fmt.Sprintf(":%s:%s:%s", userID, role, sites)
	token := HMACToken(key, prefix)

	if prefixed {
		return prefix + ":" + token
	}

	return token
}

func LockedToken(key, userID, site, session string) string {
	token := HMACToken(key, fmt.Sprintf("locked:%s:%s:%s", userID, site, session))

	return fmt.Sprintf("%s:%s:%s", site, session, token)
}

// LateToken returns a late submission token for a session. Dates without a trailing 'Z' are taken
// as local time and converted to UTC.
func LateToken(key, userID, site, session, date string) (string, error) {
	utc, err := UTCDate(date)
	if err != nil {
		return "", err
	}

	token := HMACToken(key, fmt.Sprintf("late:%s:%s:%s:%s", userID, site, session, utc))

	return utc + ":" + token, nil
}

// UTCDate converts a local yyyy-mm-ddThh:mm (or yyyy-mm-dd) date to UTC, formatted as yyyy-mm-ddThh:mmZ.
func UTCDate(date string) (string, error) {
	if date == "" || date[len(date)-1] == 'Z' {
		return date, nil
	}

	if regexp.MustCompile(`^\d\d\d\d-\d\d-\d\d$`).MatchString(date) {
		date += "T00:00"
	}

	t, err := time.ParseInLocation("2006-01-02T15:04", date, time.Local)
	if err != nil {
		return "", fmt.Errorf("error parsing date '%s'; expected local time formatted like 2016-05-04T11:59 (%v)", date, err)
	}

	return t.UTC().Format("2006-01-02T15:04") + "Z", nil
}
