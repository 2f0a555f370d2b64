package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/uhppoted/uhppoted-app-sheetdb/log"
)

const DefaultPrefix = "GServiceJSONP"

const defaultHttpTimeout = 60 * time.Second
const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second

var (
	ErrHTTP = errors.New("Error in HTTP request")
	ErrJSON = errors.New("JSON parsing error")
)

// Callback receives the parsed response body (nil on failure), the failure (nil on success) and
// whether the call completed out of issue order.
type Callback func(body json.RawMessage, err error, outOfSequence bool)

// Injector performs the fire-and-forget delivery of an alternate mode request. The response, if any,
// arrives later through Deliver.
type Injector func(ctx context.Context, uri string)

// Transport issues asynchronous requests and numbers them so that completions arriving out of
// issue order can be flagged. Completions are never reordered or buffered.
//
// Callbacks are invoked one at a time. A callback may issue further requests but must not block
// waiting on the completion of another request.
type Transport struct {
	Client *http.Client
	Prefix string
	Inject Injector

	ctx    context.Context
	cancel context.CancelFunc

	guard    sync.Mutex
	issued   uint64
	received uint64
	pending  map[uint64]Callback

	serial sync.Mutex
}

func NewTransport(ctx context.Context, client *http.Client) *Transport {
	if client == nil {
		client = defaultClient()
	}

	cancelCtx, cancel := context.WithCancel(ctx)

	t := Transport{
		Client:  client,
		Prefix:  DefaultPrefix,
		ctx:     cancelCtx,
		cancel:  cancel,
		pending: map[uint64]Callback{},
	}

	t.Inject = t.fetch

	return &t
}

func defaultClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: defaultHttpConnectTimeout,
	}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHttpTlsTimeout,
	}

	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	return &http.Client{
		Transport: transport,
		Timeout:   defaultHttpTimeout,
		Jar:       jar,
	}
}

// Close cancels the transport context. In-flight direct requests complete with an error.
func (t *Transport) Close() {
	t.cancel()
}

// Pending returns the number of alternate mode calls still waiting for a callback.
func (t *Transport) Pending() int {
	t.guard.Lock()
	defer t.guard.Unlock()

	return len(t.pending)
}

// Send issues the payload to the endpoint and returns the sequence number assigned to the call.
// It never blocks on the network. Alternate mode calls without a callback can never complete and
// are not numbered (0 is returned).
func (t *Transport) Send(payload url.Values, endpoint string, jsonp bool, callback Callback) uint64 {
	encoded := payload.Encode()

	if jsonp && callback == nil {
		t.requestJSONP(0, endpoint, encoded, nil)
		return 0
	}

	seq := t.next()

	if jsonp {
		t.requestJSONP(seq, endpoint, encoded, callback)
	} else {
		log.Debugf("sendData: %v %v", endpoint, encoded)

		go t.post(seq, endpoint, encoded, callback)
	}

	return seq
}

func (t *Transport) next() uint64 {
	t.guard.Lock()
	defer t.guard.Unlock()

	t.issued++

	return t.issued
}

func (t *Transport) post(seq uint64, endpoint string, encoded string, callback Callback) {
	rq, err := http.NewRequestWithContext(t.ctx, http.MethodPost, endpoint, strings.NewReader(encoded))
	if err != nil {
		log.Warnf("request %v: %v", seq, err)
		t.complete(seq, nil, ErrHTTP, callback)
		return
	}

	rq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := t.Client.Do(rq)
	if err != nil {
		log.Warnf("request %v: %v", seq, err)
		t.complete(seq, nil, ErrHTTP, callback)
		return
	}

	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil || response.StatusCode != http.StatusOK {
		log.Warnf("request %v: HTTP %v %s", seq, response.StatusCode, body)
		t.complete(seq, nil, ErrHTTP, callback)
		return
	}

	log.Debugf("request %v: HTTP %v %s", seq, response.StatusCode, body)

	if !json.Valid(body) {
		log.Warnf("request %v: JSON parsing error %s", seq, body)
		t.complete(seq, nil, ErrJSON, callback)
		return
	}

	t.complete(seq, json.RawMessage(body), nil, callback)
}

func (t *Transport) requestJSONP(seq uint64, endpoint string, encoded string, callback Callback) {
	suffix := fmt.Sprintf("&prefix=%v", url.QueryEscape(t.Prefix))

	if callback != nil {
		t.guard.Lock()
		t.pending[seq] = callback
		t.guard.Unlock()

		suffix += fmt.Sprintf("&callback=%v", seq)
	}

	uri := endpoint + "?" + encoded + suffix

	log.Debugf("requestJSONP: %v", uri)

	go t.Inject(t.ctx, uri)
}

// Deliver dispatches an out-of-band callback for an alternate mode call. Index 0 and unknown indices
// are ignored.
func (t *Transport) Deliver(index uint64, body json.RawMessage) {
	log.Debugf("handleJSONP: %v", index)

	if index == 0 {
		return
	}

	t.guard.Lock()
	callback, ok := t.pending[index]
	delete(t.pending, index)
	t.guard.Unlock()

	if !ok {
		log.Warnf("handleJSONP: invalid JSONP callback index %v", index)
		return
	}

	if len(bytes.TrimSpace(body)) == 0 {
		t.complete(index, nil, nil, callback)
		return
	}

	if !json.Valid(body) {
		log.Warnf("handleJSONP: JSON parsing error %s", body)
		t.complete(index, nil, ErrJSON, callback)
		return
	}

	t.complete(index, body, nil, callback)
}

func (t *Transport) complete(seq uint64, body json.RawMessage, err error, callback Callback) {
	t.serial.Lock()
	defer t.serial.Unlock()

	t.guard.Lock()
	outOfSequence := seq != t.received+1
	if seq > t.received {
		t.received = seq
	}
	t.guard.Unlock()

	if outOfSequence {
		log.Debugf("request %v completed out of sequence", seq)
	}

	if callback != nil {
		callback(body, err, outOfSequence)
	}
}
