package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sync"
	"time"

	"github.com/uhppoted/uhppoted-app-sheetdb/identity"
	"github.com/uhppoted/uhppoted-app-sheetdb/log"
	"github.com/uhppoted/uhppoted-app-sheetdb/rowstore"
)

const TimestampFormat = "2006-01-02T15:04:05.000Z"

const submitTimestamp = "submitTimestamp"

var (
	ErrMissingSheet   = errors.New("no sheet name")
	ErrMissingID      = errors.New("no row id")
	ErrInvalidToken   = errors.New("invalid token")
	ErrNotAdmin       = errors.New("admin token required")
	ErrNoIDColumn     = errors.New("no 'id' column")
	ErrModified       = errors.New("row has been modified")
	ErrRowNotFound    = errors.New("row not found")
	ErrInvalidColumn  = errors.New("invalid column")
	ErrRowLength      = errors.New("incorrect number of row values")
	ErrInvalidRequest = errors.New("invalid request")
)

// Reply is the JSON response to every request.
type Reply struct {
	Result   string         `json:"result"`
	Value    any            `json:"value"`
	Headers  []string       `json:"headers,omitempty"`
	Info     map[string]any `json:"info,omitempty"`
	Messages string         `json:"messages,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Store implements the remote row store protocol over a Backend. Requests are executed one at a time.
type Store struct {
	backend Backend
	key     string
	now     func() time.Time

	sync.Mutex
}

type request struct {
	sheet  string
	id     string
	admin  bool
	params url.Values
}

// NewStore returns a store over the backend. If key is not blank every request must carry a valid
// user or admin token derived from the key.
func NewStore(backend Backend, key string) *Store {
	return &Store{
		backend: backend,
		key:     key,
		now:     time.Now,
	}
}

func (s *Store) Execute(ctx context.Context, params url.Values) Reply {
	reply, err := s.execute(ctx, params)
	if err != nil {
		log.Warnf("%v", err)

		return Reply{
			Result: "error",
			Error:  fmt.Sprintf("%v", err),
		}
	}

	return reply
}

func (s *Store) execute(ctx context.Context, params url.Values) (Reply, error) {
	rq := request{
		sheet:  params.Get("sheet"),
		id:     params.Get("id"),
		admin:  params.Get("admin") != "",
		params: params,
	}

	if rq.sheet == "" {
		return Reply{}, ErrMissingSheet
	}

	if err := s.authorise(rq); err != nil {
		return Reply{}, err
	}

	s.Lock()
	defer s.Unlock()

	if params.Has("headers") {
		return s.create(ctx, rq)
	}

	headers, exists, err := s.backend.Headers(ctx, rq.sheet)
	if err != nil {
		return Reply{}, err
	} else if !exists {
		return Reply{}, fmt.Errorf("%w '%v'", ErrNoSheet, rq.sheet)
	}

	var reply Reply

	switch {
	case params.Get("all") != "":
		reply, err = s.all(ctx, rq, headers)

	case params.Has("row"):
		reply, err = s.put(ctx, rq, headers)

	case params.Has("update"):
		reply, err = s.update(ctx, rq, headers)

	default:
		reply, err = s.get(ctx, rq, headers)
	}

	if err == nil && params.Get("getheaders") != "" {
		reply.Headers = headers
	}

	return reply, err
}

func (s *Store) authorise(rq request) error {
	if s.key == "" {
		return nil
	}

	token := rq.params.Get("token")

	if rq.admin {
		if token != identity.AdminToken(s.key, "admin") {
			return fmt.Errorf("%w for admin", ErrInvalidToken)
		}

		return nil
	}

	if rq.id == "" || token != identity.UserToken(s.key, rq.id) {
		return fmt.Errorf("%w for user '%v'", ErrInvalidToken, rq.id)
	}

	return nil
}

// create initialises a sheet. Re-creating a sheet with identical headers succeeds without modifying it.
func (s *Store) create(ctx context.Context, rq request) (Reply, error) {
	var headers []string
	if err := json.Unmarshal([]byte(rq.params.Get("headers")), &headers); err != nil {
		return Reply{}, fmt.Errorf("%w: headers (%v)", ErrInvalidRequest, err)
	} else if len(headers) == 0 {
		return Reply{}, fmt.Errorf("%w: no headers", ErrInvalidRequest)
	}

	existing, exists, err := s.backend.Headers(ctx, rq.sheet)
	if err != nil {
		return Reply{}, err
	}

	if exists && len(existing) > 0 {
		if !reflect.DeepEqual(existing, headers) {
			return Reply{}, fmt.Errorf("%w '%v'", ErrSheetExists, rq.sheet)
		}

		return success([]any{}, nil), nil
	}

	if err := s.backend.Create(ctx, rq.sheet, headers); err != nil {
		return Reply{}, err
	}

	log.Infof("created sheet '%v' %v", rq.sheet, headers)

	return success([]any{}, nil), nil
}

func (s *Store) get(ctx context.Context, rq request, headers []string) (Reply, error) {
	if rq.id == "" {
		return Reply{}, ErrMissingID
	}

	rows, err := s.backend.Rows(ctx, rq.sheet)
	if err != nil {
		return Reply{}, err
	}

	index, err := find(rows, headers, rq.id)
	if err != nil {
		return Reply{}, err
	} else if index < 0 {
		return success([]any{}, nil), nil
	}

	row := rows[index]
	info := map[string]any{}
	if ts, ok := timestamp(row, headers); ok {
		info["timestamp"] = ts
	}

	return success(row, info), nil
}

func (s *Store) all(ctx context.Context, rq request, headers []string) (Reply, error) {
	if s.key != "" && !rq.admin {
		return Reply{}, ErrNotAdmin
	}

	rows, err := s.backend.Rows(ctx, rq.sheet)
	if err != nil {
		return Reply{}, err
	}

	value := [][]any{}
	for _, row := range rows {
		if !blank(row) {
			value = append(value, row)
		}
	}

	return success(value, nil), nil
}

func (s *Store) put(ctx context.Context, rq request, headers []string) (Reply, error) {
	if rq.id == "" {
		return Reply{}, ErrMissingID
	}

	var row []any
	if err := json.Unmarshal([]byte(rq.params.Get("row")), &row); err != nil {
		return Reply{}, fmt.Errorf("%w: row (%v)", ErrInvalidRequest, err)
	} else if len(row) != len(headers) {
		return Reply{}, fmt.Errorf("%w: expected %v, got %v", ErrRowLength, len(headers), len(row))
	}

	rows, err := s.backend.Rows(ctx, rq.sheet)
	if err != nil {
		return Reply{}, err
	}

	index, err := find(rows, headers, rq.id)
	if err != nil {
		return Reply{}, err
	}

	row[indexOf(headers, rowstore.ColumnID)] = rq.id

	var prev float64
	if index >= 0 {
		prev, _ = timestamp(rows[index], headers)

		if rq.params.Get("nooverwrite") != "" {
			info := map[string]any{}
			if prev != 0 {
				info["timestamp"] = prev
			}

			if rq.params.Get("get") != "" {
				return success(rows[index], info), nil
			}

			return success([]any{}, info), nil
		}

		if err := s.precondition(rq, prev); err != nil {
			return Reply{}, err
		}
	}

	ts := s.stamp(prev)
	if ix := indexOf(headers, rowstore.ColumnTimestamp); ix >= 0 {
		row[ix] = format(ts)
	}

	if ix := indexOf(headers, submitTimestamp); ix >= 0 && rq.params.Get("submit") != "" {
		row[ix] = format(ts)
	}

	if index >= 0 {
		err = s.backend.Update(ctx, rq.sheet, index, row)
	} else {
		err = s.backend.Append(ctx, rq.sheet, row)
	}

	if err != nil {
		return Reply{}, err
	}

	return s.written(rq, row, ts, prev), nil
}

func (s *Store) update(ctx context.Context, rq request, headers []string) (Reply, error) {
	if rq.id == "" {
		return Reply{}, ErrMissingID
	}

	var updates [][]any
	if err := json.Unmarshal([]byte(rq.params.Get("update")), &updates); err != nil {
		return Reply{}, fmt.Errorf("%w: update (%v)", ErrInvalidRequest, err)
	}

	rows, err := s.backend.Rows(ctx, rq.sheet)
	if err != nil {
		return Reply{}, err
	}

	index, err := find(rows, headers, rq.id)
	if err != nil {
		return Reply{}, err
	} else if index < 0 {
		return Reply{}, fmt.Errorf("%w '%v'", ErrRowNotFound, rq.id)
	}

	row := append([]any{}, rows[index]...)
	prev, _ := timestamp(row, headers)

	if err := s.precondition(rq, prev); err != nil {
		return Reply{}, err
	}

	for _, u := range updates {
		if len(u) != 2 {
			return Reply{}, fmt.Errorf("%w: update %v", ErrInvalidRequest, u)
		}

		column := text(u[0])
		ix := indexOf(headers, column)
		if ix < 0 {
			return Reply{}, fmt.Errorf("%w '%v'", ErrInvalidColumn, column)
		}

		if column != rowstore.ColumnID && column != rowstore.ColumnTimestamp {
			row[ix] = u[1]
		}
	}

	ts := s.stamp(prev)
	if ix := indexOf(headers, rowstore.ColumnTimestamp); ix >= 0 {
		row[ix] = format(ts)
	}

	if err := s.backend.Update(ctx, rq.sheet, index, row); err != nil {
		return Reply{}, err
	}

	return s.written(rq, row, ts, prev), nil
}

func (s *Store) precondition(rq request, prev float64) error {
	expected := rq.params.Get("timestamp")
	if expected == "" {
		return nil
	}

	if ms, ok := rowstore.EpochMillis(expected); !ok || ms != prev {
		return fmt.Errorf("%w - row '%v' timestamp %v, expected %v", ErrModified, rq.id, text(prev), expected)
	}

	return nil
}

// stamp returns the current time in milliseconds, guaranteed later than the previous row timestamp.
func (s *Store) stamp(prev float64) float64 {
	ts := float64(s.now().UnixMilli())
	if ts <= prev {
		ts = prev + 1
	}

	return ts
}

func (s *Store) written(rq request, row []any, ts float64, prev float64) Reply {
	info := map[string]any{
		"timestamp": ts,
	}

	if prev != 0 {
		info["prevTimestamp"] = prev
	}

	if rq.params.Get("get") != "" {
		return success(row, info)
	}

	return success([]any{}, info)
}

func success(value any, info map[string]any) Reply {
	return Reply{
		Result: "success",
		Value:  value,
		Info:   info,
	}
}

func find(rows [][]any, headers []string, id string) (int, error) {
	ix := indexOf(headers, rowstore.ColumnID)
	if ix < 0 {
		return -1, ErrNoIDColumn
	}

	for i, row := range rows {
		if ix < len(row) && text(row[ix]) == id {
			return i, nil
		}
	}

	return -1, nil
}

func timestamp(row []any, headers []string) (float64, bool) {
	if ix := indexOf(headers, rowstore.ColumnTimestamp); ix >= 0 && ix < len(row) {
		return rowstore.EpochMillis(row[ix])
	}

	return 0, false
}

func indexOf(headers []string, column string) int {
	for i, h := range headers {
		if h == column {
			return i
		}
	}

	return -1
}

func blank(row []any) bool {
	for _, v := range row {
		if text(v) != "" {
			return false
		}
	}

	return true
}

func format(ms float64) string {
	return time.UnixMilli(int64(ms)).UTC().Format(TimestampFormat)
}
