package rowstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/uhppoted/uhppoted-app-sheetdb/log"
)

// response is the JSON object returned by the remote store for every request.
type response struct {
	Result   string          `json:"result"`
	Value    json.RawMessage `json:"value"`
	Headers  []string        `json:"headers"`
	Info     Info            `json:"info"`
	Messages string          `json:"messages"`
	Error    string          `json:"error"`
}

func (r response) success() bool {
	return r.Result == "success" && !isNull(r.Value)
}

func (r response) failed() bool {
	return r.Result == "error" && r.Error != ""
}

func (r response) messages() []string {
	if r.Messages == "" {
		return nil
	}

	return strings.Split(r.Messages, "\n")
}

// single returns the completion handler for the operations that return a single row.
func (s *Sheet) single(op operation, call *Call[Object]) func(string, json.RawMessage, error, bool) {
	return func(userID string, body json.RawMessage, err error, outOfSequence bool) {
		result := Result[Object]{
			Status:        Status{Info: Info{}},
			OutOfSequence: outOfSequence,
		}

		defer func() {
			call.resolve(result)
		}()

		rsp, ok := decode(body, err, &result.Status)
		if !ok {
			return
		}

		switch {
		case rsp.success():
			headers := s.headers(rsp)

			var row Row
			if err := json.Unmarshal(rsp.Value, &row); err != nil {
				result.Status.Err = fmt.Errorf("error in %v callback (%w)", op, err)
				return
			}

			if len(row) == 0 {
				result.Value = Object{}
			} else if obj, err := RowToObject(row, headers); err != nil {
				result.Status.Err = fmt.Errorf("error in %v callback (%w)", op, err)
				return
			} else {
				result.Value = obj
			}

			if rsp.Info != nil {
				result.Status.Info = rsp.Info
			}

			if len(rsp.Headers) > 0 {
				result.Status.Info["headers"] = rsp.Headers
			}

			if userID != "" {
				if err := s.reconcile(userID, result.Status.Info, outOfSequence); err != nil {
					log.Warnf("%v: %v", op, err)
					result.Value = nil
					result.Status.Err = err
				}
			}

		case rsp.failed():
			result.Status.Err = &ServerError{Local: message(err), Remote: rsp.Error}
		}

		result.Status.Messages = rsp.messages()
	}
}

// all returns the completion handler for getAll, which returns every row of the sheet.
func (s *Sheet) all(call *Call[map[string]Object]) func(string, json.RawMessage, error, bool) {
	return func(userID string, body json.RawMessage, err error, outOfSequence bool) {
		result := Result[map[string]Object]{
			Status:        Status{Info: Info{}},
			OutOfSequence: outOfSequence,
		}

		defer func() {
			call.resolve(result)
		}()

		rsp, ok := decode(body, err, &result.Status)
		if !ok {
			return
		}

		switch {
		case rsp.success():
			headers := s.headers(rsp)

			var rows []Row
			if err := json.Unmarshal(rsp.Value, &rows); err != nil {
				result.Status.Err = fmt.Errorf("error in %v callback (%w)", opGetAll, err)
				return
			}

			objects := map[string]Object{}
			for _, row := range rows {
				if len(row) == 0 {
					continue
				}

				obj, err := RowToObject(row, headers)
				if err != nil {
					result.Status.Err = fmt.Errorf("error in %v callback (%w)", opGetAll, err)
					return
				}

				objects[text(obj[ColumnID])] = obj
			}

			result.Value = objects

			if rsp.Info != nil {
				result.Status.Info = rsp.Info
			}

			if len(rsp.Headers) > 0 {
				result.Status.Info["headers"] = rsp.Headers
			}

		case rsp.failed():
			result.Status.Err = &ServerError{Local: message(err), Remote: rsp.Error}
		}

		result.Status.Messages = rsp.messages()
	}
}

// decode unpacks a response body, recording transport and parsing failures in the status.
func decode(body json.RawMessage, err error, status *Status) (response, bool) {
	rsp := response{}

	if isNull(body) {
		if err != nil {
			status.Err = err
		} else {
			status.Err = ErrNoResponse
		}

		return rsp, false
	}

	if err := json.Unmarshal(body, &rsp); err != nil {
		status.Err = fmt.Errorf("error in callback (%w)", err)
		return rsp, false
	}

	return rsp, true
}

// headers returns the column headers for a response, adopting the server headers as the sheet
// schema if the schema is not yet known.
func (s *Sheet) headers(rsp response) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(rsp.Headers) > 0 && s.schema.Len() == 0 {
		if schema, err := NewSchema(nil, rsp.Headers); err != nil {
			log.Warnf("%v: invalid headers %v (%v)", s.name, rsp.Headers, err)
		} else {
			s.schema = schema
		}
	}

	if len(rsp.Headers) > 0 {
		return rsp.Headers
	}

	return s.schema.Headers()
}

// reconcile checks the previous row timestamp reported by the server against the last timestamp
// recorded for the row and advances the recorded timestamp. The check is skipped for responses that
// arrive out of sequence.
func (s *Sheet) reconcile(id string, info Info, outOfSequence bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.state(id)
	local := state.timestamp

	var err error
	if prev, ok := info.PrevTimestamp(); ok && !outOfSequence && local != 0 && prev != local {
		err = &ConflictError{Expected: local, Received: prev}
	}

	if ts, ok := info.Timestamp(); ok && ts > local {
		state.timestamp = ts
	}

	return err
}

func message(err error) string {
	if err != nil {
		return err.Error()
	}

	return ""
}

func isNull(b json.RawMessage) bool {
	v := bytes.TrimSpace(b)

	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}
