package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"

	"github.com/uhppoted/uhppoted-app-sheetdb/log"
)

var script = regexp.MustCompile(`(?s)^\s*([A-Za-z_$][\w$.]*)\(\s*([0-9]+)\s*,\s*(.*?)\s*\)\s*;?\s*$`)

// fetch is the default Injector. It retrieves the callback script and evaluates it by dispatching
// the wrapped JSON through Deliver. Fetch failures are logged and otherwise silent.
func (t *Transport) fetch(ctx context.Context, uri string) {
	rq, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		log.Warnf("requestJSONP: %v", err)
		return
	}

	response, err := t.Client.Do(rq)
	if err != nil {
		log.Warnf("requestJSONP: %v", err)
		return
	}

	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		log.Warnf("requestJSONP: %v", err)
		return
	}

	if prefix, index, payload, err := ParseScript(body); err != nil {
		log.Warnf("requestJSONP: %v", err)
	} else if prefix != t.Prefix {
		log.Warnf("requestJSONP: unexpected callback function '%v'", prefix)
	} else {
		t.Deliver(index, payload)
	}
}

// ParseScript unpacks a callback script of the form prefix(index, {...}).
func ParseScript(b []byte) (string, uint64, json.RawMessage, error) {
	match := script.FindSubmatch(b)
	if len(match) < 4 {
		return "", 0, nil, fmt.Errorf("invalid JSONP callback script")
	}

	index, err := strconv.ParseUint(string(match[2]), 10, 64)
	if err != nil {
		return "", 0, nil, fmt.Errorf("invalid JSONP callback index (%v)", err)
	}

	return string(match[1]), index, json.RawMessage(match[3]), nil
}

// Handler accepts out-of-band callbacks posted by a relay, e.g. POST /?callback=12 with the JSON
// response as the request body.
func (t *Transport) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, rq *http.Request) {
		index, err := strconv.ParseUint(rq.URL.Query().Get("callback"), 10, 64)
		if err != nil {
			http.Error(w, "invalid callback index", http.StatusBadRequest)
			return
		}

		body, err := io.ReadAll(rq.Body)
		if err != nil {
			http.Error(w, "error reading callback", http.StatusBadRequest)
			return
		}

		t.Deliver(index, json.RawMessage(body))

		w.WriteHeader(http.StatusNoContent)
	})
}
