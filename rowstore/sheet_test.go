package rowstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/uhppoted/uhppoted-app-sheetdb/identity"
	"github.com/uhppoted/uhppoted-app-sheetdb/transport"
)

type harness struct {
	transport *transport.Transport
	session   *identity.Session
	sheet     *Sheet
	requests  chan url.Values
}

func setup(t *testing.T, preHeaders []string, fields []string) *harness {
	h := harness{
		transport: transport.NewTransport(context.Background(), nil),
		session:   identity.NewSession(&identity.Identity{ID: "u1", DisplayName: "Smith, Alice", Token: "+P3Jd9gA", Email: "alice@example.com"}),
		requests:  make(chan url.Values, 16),
	}

	h.transport.Inject = func(ctx context.Context, uri string) {
		if u, err := url.Parse(uri); err == nil {
			h.requests <- u.Query()
		}
	}

	sheet, err := NewSheet(h.transport, h.session, Config{
		URL:        "http://localhost/exec",
		Sheet:      "scores",
		PreHeaders: preHeaders,
		Fields:     fields,
		JSONP:      true,
	})
	if err != nil {
		t.Fatalf("Error creating sheet (%v)", err)
	}

	h.sheet = sheet

	t.Cleanup(h.transport.Close)

	return &h
}

func defaultSetup(t *testing.T) *harness {
	return setup(t, []string{"id", "name", "Timestamp"}, []string{"score"})
}

// next returns the next n requests in issue order.
func (h *harness) next(t *testing.T, n int) []url.Values {
	requests := []url.Values{}
	timeout := time.After(1 * time.Second)

	for len(requests) < n {
		select {
		case q := <-h.requests:
			requests = append(requests, q)
		case <-timeout:
			t.Fatalf("Timeout waiting for request %v of %v", len(requests)+1, n)
		}
	}

	sort.Slice(requests, func(i, j int) bool { return index(requests[i]) < index(requests[j]) })

	return requests
}

func (h *harness) reply(q url.Values, body string) {
	h.transport.Deliver(index(q), json.RawMessage(body))
}

func index(q url.Values) uint64 {
	ix, _ := strconv.ParseUint(q.Get("callback"), 10, 64)

	return ix
}

func wait[T any](t *testing.T, call *Call[T]) Result[T] {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	result, err := call.Wait(ctx)
	if err != nil {
		t.Fatalf("Timeout waiting for call to complete (%v)", err)
	}

	return result
}

// primes the recorded timestamp for u1
func prime(t *testing.T, h *harness, ts string) {
	call, err := h.sheet.GetRow("")
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	q := h.next(t, 1)[0]
	h.reply(q, `{"result":"success","value":["u1","Alice","2020-01-01T00:00Z",5],"info":{"timestamp":`+ts+`}}`)

	if result := wait(t, call); result.Err() != nil {
		t.Fatalf("Unexpected error (%v)", result.Err())
	}
}

func TestGetRow(t *testing.T) {
	h := defaultSetup(t)

	call, err := h.sheet.GetRow("")
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	q := h.next(t, 1)[0]

	expected := map[string]string{
		"id":       "u1",
		"token":    "+P3Jd9gA",
		"sheet":    "scores",
		"prefix":   "GServiceJSONP",
		"callback": "1",
	}

	for k, v := range expected {
		if q.Get(k) != v {
			t.Errorf("Incorrect '%v' parameter - expected:%v, got:%v", k, v, q.Get(k))
		}
	}

	if q.Has("admin") || q.Has("getheaders") || q.Has("timestamp") {
		t.Errorf("Unexpected request parameters %v", q)
	}

	h.reply(q, `{"result":"success","value":["u1","Alice","2020-01-01T00:00Z",5],"info":{"timestamp":1577836800000}}`)

	result := wait(t, call)
	if result.Err() != nil {
		t.Fatalf("Unexpected error (%v)", result.Err())
	}

	row := Object{"id": "u1", "name": "Alice", "Timestamp": "2020-01-01T00:00Z", "score": float64(5)}
	if !reflect.DeepEqual(result.Value, row) {
		t.Errorf("Incorrect row\n   expected:%v\n   got:     %v", row, result.Value)
	}

	if result.OutOfSequence {
		t.Errorf("Incorrectly flagged as out of sequence")
	}

	if ts, ok := h.sheet.Timestamp("u1"); !ok || ts != 1577836800000 {
		t.Errorf("Incorrect timestamp - expected:%v, got:%v", 1577836800000, ts)
	}

	if stats := h.sheet.Stats(); stats.Outstanding != 0 {
		t.Errorf("Incorrect outstanding count - expected:%v, got:%v", 0, stats.Outstanding)
	}
}

func TestGetRowWithEmptyValue(t *testing.T) {
	h := defaultSetup(t)

	call, _ := h.sheet.GetRow("u2")
	q := h.next(t, 1)[0]

	if q.Get("id") != "u2" {
		t.Errorf("Incorrect id - expected:%v, got:%v", "u2", q.Get("id"))
	}

	h.reply(q, `{"result":"success","value":[]}`)

	result := wait(t, call)
	if result.Err() != nil {
		t.Fatalf("Unexpected error (%v)", result.Err())
	}

	if result.Value == nil || len(result.Value) != 0 {
		t.Errorf("Expected empty row, got %v", result.Value)
	}
}

func TestGetRowWithNullValue(t *testing.T) {
	h := defaultSetup(t)

	call, _ := h.sheet.GetRow("u2")
	h.reply(h.next(t, 1)[0], `{"result":"success","value":null,"messages":"row not found"}`)

	result := wait(t, call)
	if result.Err() != nil || result.Value != nil {
		t.Errorf("Expected nil row without error, got %v (%v)", result.Value, result.Err())
	}

	if !reflect.DeepEqual(result.Status.Messages, []string{"row not found"}) {
		t.Errorf("Incorrect messages - got:%v", result.Status.Messages)
	}
}

func TestGetRowWithoutIdentity(t *testing.T) {
	h := defaultSetup(t)
	h.session.Clear()

	if _, err := h.sheet.GetRow(""); !errors.Is(err, ErrMissingID) {
		t.Errorf("Expected %v, got %v", ErrMissingID, err)
	}
}

func TestGetAll(t *testing.T) {
	h := defaultSetup(t)

	call, _ := h.sheet.GetAll()
	q := h.next(t, 1)[0]

	if q.Get("all") != "1" || q.Get("get") != "1" {
		t.Errorf("Expected all=1&get=1, got %v", q)
	}

	h.reply(q, `{"result":"success","value":[["u1","Alice","2020-01-01T00:00Z",5],[],["u2","Bob","",7]]}`)

	result := wait(t, call)
	if result.Err() != nil {
		t.Fatalf("Unexpected error (%v)", result.Err())
	}

	expected := map[string]Object{
		"u1": {"id": "u1", "name": "Alice", "Timestamp": "2020-01-01T00:00Z", "score": float64(5)},
		"u2": {"id": "u2", "name": "Bob", "Timestamp": "", "score": float64(7)},
	}

	if !reflect.DeepEqual(result.Value, expected) {
		t.Errorf("Incorrect rows\n   expected:%v\n   got:     %v", expected, result.Value)
	}
}

func TestGetAllWithEmptySheet(t *testing.T) {
	h := defaultSetup(t)

	call, _ := h.sheet.GetAll()
	h.reply(h.next(t, 1)[0], `{"result":"success","value":[]}`)

	result := wait(t, call)
	if result.Err() != nil {
		t.Fatalf("Unexpected error (%v)", result.Err())
	}

	if result.Value == nil || len(result.Value) != 0 {
		t.Errorf("Expected empty map, got %v", result.Value)
	}
}

func TestLoadCache(t *testing.T) {
	h := defaultSetup(t)

	call, _ := h.sheet.LoadCache()
	h.reply(h.next(t, 1)[0], `{"result":"success","value":[
	  ["u1","Alice","2020-01-01T00:00Z",5],
	  ["_max_score","","2020-01-01T00:00Z",10],
	  ["u2","Bob","",7],
	  ["u3","","2020-01-01T00:00Z",1]]}`)

	if result := wait(t, call); result.Err() != nil {
		t.Fatalf("Unexpected error (%v)", result.Err())
	}

	roster := []RosterEntry{{Name: "Alice", ID: "u1"}}
	if got := h.sheet.Roster(); !reflect.DeepEqual(got, roster) {
		t.Errorf("Incorrect roster - expected:%v, got:%v", roster, got)
	}

	if ts, ok := h.sheet.Timestamp("u1"); !ok || ts != 1577836800000 {
		t.Errorf("Incorrect timestamp - expected:%v, got:%v", 1577836800000, ts)
	}

	if _, ok := h.sheet.Timestamp("u2"); ok {
		t.Errorf("Unexpected timestamp for row without Timestamp")
	}

	cached, _ := h.sheet.GetRow("u2")
	result := wait(t, cached)
	if result.Err() != nil || result.Value["name"] != "Bob" {
		t.Errorf("Incorrect cached row - got:%v (%v)", result.Value, result.Err())
	}

	if !reflect.DeepEqual(result.Status.Messages, []string{"Info:FROM_CACHE:"}) {
		t.Errorf("Incorrect cached row messages - got:%v", result.Status.Messages)
	}

	missing, _ := h.sheet.GetRow("u9")
	if result := wait(t, missing); result.Err() == nil || result.Err().Error() != "id 'u9' not found in cache" {
		t.Errorf("Incorrect error for uncached row - got:%v", result.Err())
	}

	if _, err := h.sheet.PutRow(Object{"id": "u1"}, PutOptions{}); !errors.Is(err, ErrCaching) {
		t.Errorf("Expected %v, got %v", ErrCaching, err)
	}
}

func TestInitCache(t *testing.T) {
	h := defaultSetup(t)

	if h.sheet.Cached() {
		t.Errorf("Expected no cache before initialisation")
	}

	rows := map[string]Object{
		"u1":         {"id": "u1", "name": "Alice", "Timestamp": "2020-01-01T00:00Z"},
		"_max_score": {"id": "_max_score", "name": "max", "Timestamp": "2020-01-01T00:00Z", "score": 10},
		"":           {"id": "", "name": "Nobody", "Timestamp": "2020-01-01T00:00Z"},
	}

	h.sheet.InitCache(rows)

	if !h.sheet.Cached() {
		t.Errorf("Expected cache after initialisation")
	}

	roster := []RosterEntry{{Name: "Alice", ID: "u1"}}
	if got := h.sheet.Roster(); !reflect.DeepEqual(got, roster) {
		t.Errorf("Incorrect roster - expected:%v, got:%v", roster, got)
	}

	if ts, ok := h.sheet.Timestamp("u1"); !ok || ts != 1577836800000 {
		t.Errorf("Incorrect timestamp - expected:%v, got:%v", 1577836800000, ts)
	}

	// ... cached rows are independent of the installed snapshot
	if _, err := h.sheet.UpdateRow(Object{"id": "u1", "name": "Alicia"}, UpdateOptions{}); err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	if rows["u1"]["name"] != "Alice" {
		t.Errorf("Snapshot modified by cached update - got:%v", rows["u1"])
	}

	cached, _ := h.sheet.GetRow("u1")
	if result := wait(t, cached); result.Value["name"] != "Alicia" {
		t.Errorf("Incorrect cached row - got:%v", result.Value)
	}
}

func TestRosterOrder(t *testing.T) {
	h := defaultSetup(t)

	if h.sheet.Roster() != nil {
		t.Errorf("Expected nil roster before cache is initialised")
	}

	call, _ := h.sheet.LoadCache()
	h.reply(h.next(t, 1)[0], `{"result":"success","value":[
	  ["u3","Carol","2020-01-01T00:00Z",1],
	  ["u2","Alice","2020-01-02T00:00Z",2],
	  ["u1","Alice","2020-01-03T00:00Z",3]]}`)

	wait(t, call)

	roster := []RosterEntry{
		{Name: "Alice", ID: "u1"},
		{Name: "Alice", ID: "u2"},
		{Name: "Carol", ID: "u3"},
	}

	if got := h.sheet.Roster(); !reflect.DeepEqual(got, roster) {
		t.Errorf("Incorrect roster\n   expected:%v\n   got:     %v", roster, got)
	}
}

func TestPutRowTimestampPrecondition(t *testing.T) {
	h := defaultSetup(t)

	prime(t, h, "1000")

	calls := []*Call[Object]{}
	for _, score := range []int{1, 2, 3} {
		call, err := h.sheet.PutRow(Object{"id": "u1", "score": score}, PutOptions{})
		if err != nil {
			t.Fatalf("Unexpected error (%v)", err)
		}

		calls = append(calls, call)
	}

	if stats := h.sheet.Stats(); stats.PendingUpdates != 3 || stats.Outstanding != 3 {
		t.Errorf("Incorrect stats - got:%+v", stats)
	}

	requests := h.next(t, 3)

	if requests[0].Get("timestamp") != "1000" {
		t.Errorf("Expected timestamp precondition on first write, got %v", requests[0])
	}

	for _, q := range requests[1:] {
		if q.Has("timestamp") {
			t.Errorf("Unexpected timestamp precondition on write %v", q.Get("callback"))
		}
	}

	replies := []string{
		`{"result":"success","value":[],"info":{"timestamp":2000,"prevTimestamp":1000}}`,
		`{"result":"success","value":[],"info":{"timestamp":2001,"prevTimestamp":2000}}`,
		`{"result":"success","value":[],"info":{"timestamp":2002,"prevTimestamp":2001}}`,
	}

	for i, q := range requests {
		h.reply(q, replies[i])
	}

	for _, call := range calls {
		if result := wait(t, call); result.Err() != nil {
			t.Errorf("Unexpected error (%v)", result.Err())
		}
	}

	if stats := h.sheet.Stats(); stats.PendingUpdates != 0 || stats.Outstanding != 0 {
		t.Errorf("Incorrect stats after completion - got:%+v", stats)
	}

	if ts, _ := h.sheet.Timestamp("u1"); ts != 2002 {
		t.Errorf("Incorrect timestamp - expected:%v, got:%v", 2002, ts)
	}
}

func TestPutRowRequest(t *testing.T) {
	h := defaultSetup(t)

	call, _ := h.sheet.PutRow(Object{"id": "u1", "name": "Alice", "score": 5}, PutOptions{Get: true, NoOverwrite: true, Submit: true})
	q := h.next(t, 1)[0]

	if q.Get("row") != `["u1","Alice",null,5]` {
		t.Errorf("Incorrect row - got:%v", q.Get("row"))
	}

	for _, k := range []string{"get", "nooverwrite", "submit"} {
		if q.Get(k) != "1" {
			t.Errorf("Expected %v=1, got %v", k, q)
		}
	}

	if q.Has("timestamp") {
		t.Errorf("Unexpected timestamp precondition for row without timestamp")
	}

	h.reply(q, `{"result":"success","value":["u1","Alice","2020-01-01T00:00Z",5],"info":{"timestamp":1577836800000}}`)

	if result := wait(t, call); result.Err() != nil {
		t.Errorf("Unexpected error (%v)", result.Err())
	}
}

func TestPutRowValidation(t *testing.T) {
	h := defaultSetup(t)

	if _, err := h.sheet.PutRow(Object{"name": "Alice"}, PutOptions{}); !errors.Is(err, ErrMissingID) {
		t.Errorf("Expected %v, got %v", ErrMissingID, err)
	}

	if _, err := h.sheet.PutRow(Object{"id": "u1"}, PutOptions{NoOverwrite: true}); !errors.Is(err, ErrMissingName) {
		t.Errorf("Expected %v, got %v", ErrMissingName, err)
	}

	if _, err := h.sheet.PutRow(Object{"id": "u1", "colour": "blue"}, PutOptions{}); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("Expected %v, got %v", ErrUnknownColumn, err)
	}

	if stats := h.sheet.Stats(); stats.Outstanding != 0 || stats.PendingUpdates != 0 {
		t.Errorf("Invalid put issued a request - stats:%+v", stats)
	}
}

func TestConflictingUpdate(t *testing.T) {
	h := defaultSetup(t)

	prime(t, h, "1000")

	call, _ := h.sheet.PutRow(Object{"id": "u1", "score": 7}, PutOptions{Get: true})
	h.reply(h.next(t, 1)[0], `{"result":"success","value":["u1","Alice","2020-01-01T00:00Z",7],"info":{"timestamp":1100,"prevTimestamp":900}}`)

	result := wait(t, call)

	if !errors.Is(result.Err(), ErrConflict) {
		t.Fatalf("Expected %v, got %v", ErrConflict, result.Err())
	}

	if !strings.Contains(result.Err().Error(), "expected 1000 but received 900") {
		t.Errorf("Incorrect conflict message - got:%v", result.Err())
	}

	if result.Value != nil {
		t.Errorf("Expected nil value for conflicting update, got %v", result.Value)
	}

	if ts, _ := h.sheet.Timestamp("u1"); ts != 1100 {
		t.Errorf("Timestamp not advanced - expected:%v, got:%v", 1100, ts)
	}
}

func TestOutOfSequenceResponseSkipsConflictCheck(t *testing.T) {
	h := defaultSetup(t)

	prime(t, h, "1000")

	first, _ := h.sheet.PutRow(Object{"id": "u1", "score": 1}, PutOptions{})
	second, _ := h.sheet.PutRow(Object{"id": "u1", "score": 2}, PutOptions{})

	requests := h.next(t, 2)

	h.reply(requests[1], `{"result":"success","value":[],"info":{"timestamp":3000,"prevTimestamp":2000}}`)
	h.reply(requests[0], `{"result":"success","value":[],"info":{"timestamp":2000,"prevTimestamp":1000}}`)

	r2 := wait(t, second)
	if !r2.OutOfSequence {
		t.Errorf("Expected second write to complete out of sequence")
	}

	if r2.Err() != nil {
		t.Errorf("Unexpected error for out of sequence response (%v)", r2.Err())
	}

	r1 := wait(t, first)
	if r1.Err() != nil {
		t.Errorf("Unexpected error for first write (%v)", r1.Err())
	}

	if ts, _ := h.sheet.Timestamp("u1"); ts != 3000 {
		t.Errorf("Timestamp regressed - expected:%v, got:%v", 3000, ts)
	}
}

func TestServerError(t *testing.T) {
	h := defaultSetup(t)

	call, _ := h.sheet.GetRow("u1")
	h.reply(h.next(t, 1)[0], `{"result":"error","error":"Invalid token","messages":"line 1\nline 2"}`)

	result := wait(t, call)

	var serr *ServerError
	if !errors.As(result.Err(), &serr) || serr.Error() != "Invalid token" {
		t.Errorf("Expected server error 'Invalid token', got %v", result.Err())
	}

	if !reflect.DeepEqual(result.Status.Messages, []string{"line 1", "line 2"}) {
		t.Errorf("Incorrect messages - got:%v", result.Status.Messages)
	}
}

func TestEmptyResponse(t *testing.T) {
	h := defaultSetup(t)

	call, _ := h.sheet.GetRow("u1")
	h.reply(h.next(t, 1)[0], ``)

	if result := wait(t, call); !errors.Is(result.Err(), ErrNoResponse) || result.Value != nil {
		t.Errorf("Expected %v, got %v (%v)", ErrNoResponse, result.Value, result.Err())
	}
}

func TestUpdateRow(t *testing.T) {
	h := defaultSetup(t)

	call, _ := h.sheet.LoadCache()
	h.reply(h.next(t, 1)[0], `{"result":"success","value":[["u1","Alice","2020-01-01T00:00Z",5]]}`)
	wait(t, call)

	update, err := h.sheet.UpdateRow(Object{"id": "u1", "score": 9, "Timestamp": "2021-01-01T00:00Z"}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	q := h.next(t, 1)[0]
	if q.Get("update") != `[["id","u1"],["Timestamp","2021-01-01T00:00Z"],["score",9]]` {
		t.Errorf("Incorrect update - got:%v", q.Get("update"))
	}

	if q.Get("timestamp") != "1577836800000" {
		t.Errorf("Expected timestamp precondition from cached row, got %v", q)
	}

	cached, _ := h.sheet.GetRow("u1")
	row := wait(t, cached).Value
	if row["score"] != 9 || row["Timestamp"] != "2020-01-01T00:00Z" {
		t.Errorf("Incorrect cached row after update - got:%v", row)
	}

	h.reply(q, `{"result":"success","value":[]}`)
	wait(t, update)

	if _, err := h.sheet.UpdateRow(Object{"id": "u9", "score": 1}, UpdateOptions{}); !errors.Is(err, ErrNotCached) {
		t.Errorf("Expected %v, got %v", ErrNotCached, err)
	}

	if _, err := h.sheet.UpdateRow(Object{"id": "u1", "colour": "red"}, UpdateOptions{}); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("Expected %v, got %v", ErrUnknownColumn, err)
	}
}

func TestAuthPutRowCreatesSheet(t *testing.T) {
	h := setup(t, []string{"id", "name", "email"}, []string{"score"})

	call, err := h.sheet.AuthPutRow(Object{"score": 5, "id": "ignored", "email": "ignored"}, PutOptions{NoOverwrite: true}, true)
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	create := h.next(t, 1)[0]
	if create.Get("headers") != `["id","name","email","score"]` {
		t.Errorf("Incorrect headers - got:%v", create.Get("headers"))
	}

	h.reply(create, `{"result":"success","value":[]}`)

	put := h.next(t, 1)[0]
	if put.Get("row") != `["u1","Smith, Alice","alice@example.com",5]` {
		t.Errorf("Incorrect row - got:%v", put.Get("row"))
	}

	if put.Get("nooverwrite") != "1" {
		t.Errorf("Expected nooverwrite=1, got %v", put)
	}

	h.reply(put, `{"result":"success","value":[]}`)

	if result := wait(t, call); result.Err() != nil {
		t.Errorf("Unexpected error (%v)", result.Err())
	}
}

func TestAuthPutRowWithFailedCreate(t *testing.T) {
	h := defaultSetup(t)

	call, _ := h.sheet.AuthPutRow(Object{"score": 5}, PutOptions{}, true)
	h.reply(h.next(t, 1)[0], `{"result":"error","error":"Sheet exists with different headers"}`)

	if result := wait(t, call); result.Err() == nil || result.Err().Error() != "Sheet exists with different headers" {
		t.Errorf("Expected create error, got %v", result.Err())
	}
}

func TestAdminRequest(t *testing.T) {
	h := defaultSetup(t)
	h.session.Set(identity.Identity{ID: "admin", Token: "DFquKm90", AdminKey: "secret"})

	call, _ := h.sheet.GetRow("u2")
	q := h.next(t, 1)[0]

	if q.Get("admin") != "admin" || q.Get("token") != "DFquKm90" || q.Get("id") != "u2" {
		t.Errorf("Incorrect admin request - got:%v", q)
	}

	h.reply(q, `{"result":"success","value":[]}`)
	wait(t, call)
}

func TestLearnedHeaders(t *testing.T) {
	h := setup(t, nil, nil)

	call, _ := h.sheet.GetRow("u1")
	q := h.next(t, 1)[0]

	if q.Get("getheaders") != "1" {
		t.Errorf("Expected getheaders=1 for unknown schema, got %v", q)
	}

	h.reply(q, `{"result":"success","value":["u1","Alice"],"headers":["id","name"]}`)

	result := wait(t, call)
	if !reflect.DeepEqual(result.Value, Object{"id": "u1", "name": "Alice"}) {
		t.Errorf("Incorrect row - got:%v", result.Value)
	}

	if !reflect.DeepEqual(result.Status.Info.Headers(), []string{"id", "name"}) {
		t.Errorf("Incorrect info headers - got:%v", result.Status.Info.Headers())
	}

	again, _ := h.sheet.GetRow("u1")
	q = h.next(t, 1)[0]
	if q.Has("getheaders") {
		t.Errorf("Unexpected getheaders after schema learned")
	}

	h.reply(q, `{"result":"success","value":["u1","Bob"]}`)

	if result := wait(t, again); result.Value["name"] != "Bob" {
		t.Errorf("Incorrect row with learned schema - got:%v", result.Value)
	}
}

func TestLockingIsNotExported(t *testing.T) {
	types := []reflect.Type{
		reflect.TypeOf(&Sheet{}),
		reflect.TypeOf(&Call[Object]{}),
	}

	for _, v := range types {
		for _, method := range []string{"Lock", "Unlock", "TryLock"} {
			if _, ok := v.MethodByName(method); ok {
				t.Errorf("%v: unexpected exported method %v", v, method)
			}
		}
	}
}
