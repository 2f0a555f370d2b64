package rowstore

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/uhppoted/uhppoted-app-sheetdb/identity"
	"github.com/uhppoted/uhppoted-app-sheetdb/log"
	"github.com/uhppoted/uhppoted-app-sheetdb/transport"
)

// Session supplies the identity attached to every request.
type Session interface {
	Identity() identity.Identity
}

// Sender is the asynchronous transport used by a sheet. Send must not invoke the callback before it
// returns.
type Sender interface {
	Send(payload url.Values, endpoint string, jsonp bool, callback transport.Callback) uint64
}

type Config struct {
	URL        string
	Sheet      string
	PreHeaders []string
	Fields     []string
	JSONP      bool
}

type PutOptions struct {
	Get         bool
	ID          string
	NoOverwrite bool
	Submit      bool
}

type UpdateOptions struct {
	Get bool
}

type Stats struct {
	Outstanding    int
	PendingUpdates int
}

// Sheet is a client for a single named sheet on a remote row store.
type Sheet struct {
	url       string
	name      string
	jsonp     bool
	transport Sender
	session   Session

	mu             sync.Mutex
	schema         *Schema
	outstanding    int
	pendingUpdates int
	updates        map[string]*updateState
	cache          *cache
}

// updateState tracks the in-flight writes and last known timestamp for a row. A zero timestamp
// means unknown.
type updateState struct {
	pending   int
	timestamp float64
}

type operation int

const (
	opCreateSheet operation = iota
	opPutRow
	opUpdateRow
	opGetRow
	opGetAll
)

func (op operation) String() string {
	return [...]string{"createSheet", "putRow", "updateRow", "getRow", "getAll"}[op]
}

func NewSheet(t Sender, session Session, config Config) (*Sheet, error) {
	schema, err := NewSchema(config.PreHeaders, config.Fields)
	if err != nil {
		return nil, err
	}

	return &Sheet{
		url:       config.URL,
		name:      config.Sheet,
		jsonp:     config.JSONP,
		transport: t,
		session:   session,
		schema:    schema,
		updates:   map[string]*updateState{},
	}, nil
}

func (s *Sheet) Name() string {
	return s.name
}

func (s *Sheet) Schema() *Schema {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.schema
}

func (s *Sheet) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Outstanding:    s.outstanding,
		PendingUpdates: s.pendingUpdates,
	}
}

// Timestamp returns the last timestamp recorded for a row.
func (s *Sheet) Timestamp(id string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.updates[id]; ok && state.timestamp != 0 {
		return state.timestamp, true
	}

	return 0, false
}

// CreateSheet initialises the remote sheet with the current column headers.
func (s *Sheet) CreateSheet() (*Call[Object], error) {
	schema := s.Schema()
	if schema.Len() == 0 {
		return nil, ErrNoSchema
	}

	headers, err := json.Marshal(schema.Headers())
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("headers", string(headers))

	call := newCall[Object]()
	s.issue(params, opCreateSheet, "", s.single(opCreateSheet, call))

	return call, nil
}

// PutRow writes a complete row. A last known timestamp for the row is sent as a precondition only
// when there are no other writes to the row in flight.
func (s *Sheet) PutRow(obj Object, opts PutOptions) (*Call[Object], error) {
	id := text(obj[ColumnID])
	if id == "" {
		return nil, ErrMissingID
	}

	if opts.NoOverwrite && text(obj[ColumnName]) == "" {
		return nil, ErrMissingName
	}

	s.mu.Lock()
	caching := s.cache != nil
	schema := s.schema
	s.mu.Unlock()

	if caching {
		return nil, ErrCaching
	}

	row, err := schema.ObjectToRow(obj)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}

	key := id
	if opts.ID != "" {
		key = opts.ID
	}

	params := url.Values{}
	params.Set("id", key)
	params.Set("row", string(encoded))
	setFlag(params, "get", opts.Get)
	setFlag(params, "nooverwrite", opts.NoOverwrite)
	setFlag(params, "submit", opts.Submit)

	call := newCall[Object]()
	s.issue(params, opPutRow, key, s.single(opPutRow, call))

	return call, nil
}

// UpdateRow writes a subset of the columns of a row. If the cache is active the cached row is
// updated immediately, excluding the id and Timestamp columns.
func (s *Sheet) UpdateRow(obj Object, opts UpdateOptions) (*Call[Object], error) {
	id := text(obj[ColumnID])
	if id == "" {
		return nil, ErrMissingID
	}

	s.mu.Lock()
	columns, err := s.schema.columns(obj)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	if s.cache != nil {
		cached, ok := s.cache.get(id)
		if !ok {
			s.mu.Unlock()
			return nil, fmt.Errorf("id '%v' %w", id, ErrNotCached)
		}

		for _, k := range columns {
			if k == ColumnID || k == ColumnTimestamp {
				continue
			}

			if _, ok := cached[k]; ok {
				cached[k] = obj[k]
			}
		}
	}
	s.mu.Unlock()

	updates := [][]any{}
	for _, k := range columns {
		updates = append(updates, []any{k, obj[k]})
	}

	encoded, err := json.Marshal(updates)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("id", id)
	params.Set("update", string(encoded))
	setFlag(params, "get", opts.Get)

	call := newCall[Object]()
	s.issue(params, opUpdateRow, id, s.single(opUpdateRow, call))

	return call, nil
}

// GetRow retrieves a row by id, defaulting to the session user. Served from the cache if the cache
// is active.
func (s *Sheet) GetRow(id string) (*Call[Object], error) {
	if id == "" {
		id = s.session.Identity().ID
	}

	if id == "" {
		return nil, ErrMissingID
	}

	s.mu.Lock()
	if s.cache != nil {
		defer s.mu.Unlock()

		if row, ok := s.cache.get(id); ok {
			return resolved(Result[Object]{
				Value: clone(row),
				Status: Status{
					Info:     Info{},
					Messages: []string{"Info:FROM_CACHE:"},
				},
			}), nil
		}

		return resolved(Result[Object]{
			Status: Status{
				Err:  fmt.Errorf("id '%v' %w", id, ErrNotCached),
				Info: Info{},
			},
		}), nil
	}
	s.mu.Unlock()

	params := url.Values{}
	params.Set("id", id)

	call := newCall[Object]()
	s.issue(params, opGetRow, "", s.single(opGetRow, call))

	return call, nil
}

// GetAll retrieves all the non-empty rows of the sheet, keyed by id.
func (s *Sheet) GetAll() (*Call[map[string]Object], error) {
	params := url.Values{}
	params.Set("all", "1")
	params.Set("get", "1")

	call := newCall[map[string]Object]()
	s.issue(params, opGetAll, "", s.all(call))

	return call, nil
}

// InitCache installs a complete snapshot of the sheet, keyed by id, as the local cache and rebuilds
// the roster. Rows with a name and a Timestamp are added to the roster and their timestamps recorded.
// The rows are copied.
func (s *Sheet) InitCache(rows map[string]Object) {
	c, timestamps := newCache(rows)

	s.mu.Lock()
	s.cache = c
	for id, ts := range timestamps {
		s.state(id).timestamp = ts
	}
	s.mu.Unlock()

	log.Debugf("initCache: %v rows, %v roster entries", len(c.rows), c.roster.Len())
}

// LoadCache fetches all rows and installs them as the local cache.
func (s *Sheet) LoadCache() (*Call[map[string]Object], error) {
	all, err := s.GetAll()
	if err != nil {
		return nil, err
	}

	call := newCall[map[string]Object]()

	all.Then(func(result Result[map[string]Object]) {
		if result.Status.Err == nil && result.Value != nil {
			s.InitCache(result.Value)
		}

		call.resolve(result)
	})

	return call, nil
}

// Cached returns true if the local cache has been initialised.
func (s *Sheet) Cached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache != nil
}

// Roster returns the (name, id) pairs of the cached rows ordered by name and id, or nil if the
// cache has not been initialised.
func (s *Sheet) Roster() []RosterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache == nil {
		return nil
	}

	return s.cache.entries()
}

// AuthPutRow writes a row for the current session user. Only the field columns are copied from the
// object. The management columns are taken from the identity when nooverwrite is set. If
// createSheet is set the sheet is created first and the write issued once creation succeeds.
func (s *Sheet) AuthPutRow(obj Object, opts PutOptions, createSheet bool) (*Call[Object], error) {
	if createSheet {
		created, err := s.CreateSheet()
		if err != nil {
			return nil, err
		}

		call := newCall[Object]()

		created.Then(func(result Result[Object]) {
			if result.Status.Err != nil {
				call.resolve(Result[Object]{Status: result.Status, OutOfSequence: result.OutOfSequence})
				return
			}

			next, err := s.AuthPutRow(obj, opts, false)
			if err != nil {
				call.resolve(Result[Object]{Status: Status{Err: err, Info: Info{}}})
				return
			}

			next.Then(call.resolve)
		})

		return call, nil
	}

	auth := s.session.Identity()
	schema := s.Schema()

	row := Object{}
	for _, h := range schema.Fields() {
		if v, ok := obj[h]; ok {
			row[h] = v
		}
	}

	if opts.ID != "" {
		row[ColumnID] = opts.ID
	} else {
		row[ColumnID] = auth.ID
	}

	if opts.NoOverwrite {
		row[ColumnName] = auth.DisplayName

		if pre := schema.PreHeaders(); len(pre) > 2 {
			for _, h := range pre[2:] {
				row[h] = auth.Field(h)
			}
		}
	}

	return s.PutRow(row, opts)
}

// issue attaches the session credentials and sheet name to the request and sends it. For writes
// (key != "") the timestamp precondition is attached and the write counted as pending.
func (s *Sheet) issue(params url.Values, op operation, key string, handler func(string, json.RawMessage, error, bool)) {
	auth := s.session.Identity()

	if params.Get("id") == "" && auth.ID != "" {
		params.Set("id", auth.ID)
	}

	if auth.Token != "" {
		params.Set("token", auth.Token)
	}

	if auth.AdminKey != "" {
		params.Set("admin", "admin")
	}

	params.Set("sheet", s.name)

	userID := params.Get("id")
	write := op == opPutRow || op == opUpdateRow

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schema.Len() == 0 {
		params.Set("getheaders", "1")
	}

	if write {
		state := s.state(key)
		if state.pending == 0 && state.timestamp != 0 {
			params.Set("timestamp", timestamp(state.timestamp))
		}

		state.pending++
		s.pendingUpdates++
	}

	s.outstanding++

	s.transport.Send(params, s.url, s.jsonp, func(body json.RawMessage, err error, outOfSequence bool) {
		s.mu.Lock()
		s.outstanding--
		if write {
			s.state(key).pending--
			s.pendingUpdates--
		}
		s.mu.Unlock()

		if outOfSequence {
			log.Infof("%v: out of sequence response for '%v'", op, userID)
		}

		handler(userID, body, err, outOfSequence)
	})
}

func (s *Sheet) state(id string) *updateState {
	state, ok := s.updates[id]
	if !ok {
		state = &updateState{}
		s.updates[id] = state
	}

	return state
}

func setFlag(params url.Values, key string, set bool) {
	if set {
		params.Set(key, "1")
	}
}

func clone(obj Object) Object {
	c := Object{}
	for k, v := range obj {
		c[k] = v
	}

	return c
}
