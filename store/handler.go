package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/fulldump/box"

	"github.com/uhppoted/uhppoted-app-sheetdb/log"
	"github.com/uhppoted/uhppoted-app-sheetdb/transport"
)

var identifier = regexp.MustCompile(`^[A-Za-z_$][\w$.]*$`)

var digits = regexp.MustCompile(`^[0-9]+$`)

// Handler returns the HTTP interface to the store at the given path. Form POST requests get a JSON
// reply. GET requests with a 'callback' parameter get a script that invokes the callback prefix with
// the callback index and the JSON reply.
func (s *Store) Handler(path string) http.Handler {
	b := box.NewBox()

	b.WithInterceptors(accessLog)

	b.Resource(path).
		WithActions(
			box.Get(s.jsonp).WithName("jsonp"),
			box.Post(s.post).WithName("post"),
		)

	return b
}

func (s *Store) post(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reply := s.Execute(ctx, r.Form)

	b, err := json.Marshal(reply)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

func (s *Store) jsonp(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	reply := s.Execute(ctx, query)

	b, err := json.Marshal(reply)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	callback := query.Get("callback")
	if callback == "" {
		w.Header().Set("Content-Type", "application/json")
		w.Write(b)
		return
	}

	if !digits.MatchString(callback) {
		http.Error(w, fmt.Sprintf("invalid callback '%v'", callback), http.StatusBadRequest)
		return
	}

	prefix := query.Get("prefix")
	if !identifier.MatchString(prefix) {
		prefix = transport.DefaultPrefix
	}

	w.Header().Set("Content-Type", "application/javascript")
	fmt.Fprintf(w, "%v(%v, %s)", prefix, callback, b)
}

func accessLog(next box.H) box.H {
	return func(ctx context.Context) {
		r := box.GetRequest(ctx)
		now := time.Now()

		defer func() {
			log.Debugf("%v %v %v %v", remoteAddr(r), r.Method, r.URL.Path, time.Since(now))
		}()

		next(ctx)
	}
}

func remoteAddr(r *http.Request) string {
	if xorigin := strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-For"), ",")[0]); xorigin != "" {
		return xorigin
	}

	return r.RemoteAddr
}
