package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/aretw0/asyncsoap/pkg/ports"
)

// ErrQueueEmpty is returned when a scripted Transport has no outcome left.
var ErrQueueEmpty = errors.New("memory transport: no scripted outcome left")

// Responder produces the outcome for one request.
type Responder func(req *http.Request) ports.Outcome

// SentRequest is a snapshot of a request seen by the Transport.
type SentRequest struct {
	Method  string
	URL     string
	Header  http.Header
	Body    []byte
	Options map[string]any
}

// Transport implements ports.Transport without a network.
// Outcomes are either scripted in a FIFO queue or produced by an http.Handler
// served in-process. Safe for concurrent use.
type Transport struct {
	mu       sync.Mutex
	queue    []Responder
	handler  http.Handler
	requests []SentRequest
}

// NewTransport creates a scripted transport with an optional initial queue.
func NewTransport(outcomes ...ports.Outcome) *Transport {
	t := &Transport{}
	t.Enqueue(outcomes...)
	return t
}

// NewHandlerTransport creates a transport that serves every request with h.
func NewHandlerTransport(h http.Handler) *Transport {
	return &Transport{handler: h}
}

// Enqueue appends fixed outcomes to the queue.
func (t *Transport) Enqueue(outcomes ...ports.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, out := range outcomes {
		out := out
		t.queue = append(t.queue, func(*http.Request) ports.Outcome { return out })
	}
}

// EnqueueFunc appends responders to the queue.
func (t *Transport) EnqueueFunc(fns ...Responder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue = append(t.queue, fns...)
}

// Requests returns the requests sent so far, oldest first.
func (t *Transport) Requests() []SentRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SentRequest, len(t.requests))
	copy(out, t.requests)
	return out
}

// Pending returns the number of queued outcomes not consumed yet.
func (t *Transport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Send implements ports.Transport.
func (t *Transport) Send(ctx context.Context, req *http.Request, options map[string]any) ports.Outcome {
	if err := ctx.Err(); err != nil {
		return ports.FailedWithoutResponse(err)
	}

	sent := SentRequest{
		Method:  req.Method,
		URL:     req.URL.String(),
		Header:  req.Header.Clone(),
		Options: options,
	}
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return ports.FailedWithoutResponse(&domain.TransportError{Op: req.Method, URL: sent.URL, Err: err})
		}
		sent.Body = body
		// Handlers read the body again.
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	t.mu.Lock()
	t.requests = append(t.requests, sent)
	var next Responder
	if t.handler == nil {
		if len(t.queue) == 0 {
			t.mu.Unlock()
			return ports.FailedWithoutResponse(&domain.TransportError{Op: req.Method, URL: sent.URL, Err: ErrQueueEmpty})
		}
		next = t.queue[0]
		t.queue = t.queue[1:]
	}
	t.mu.Unlock()

	if next != nil {
		return next(req)
	}
	return t.serve(ctx, req)
}

func (t *Transport) serve(ctx context.Context, req *http.Request) ports.Outcome {
	rec := httptest.NewRecorder()
	t.handler.ServeHTTP(rec, req.WithContext(ctx))
	if err := ctx.Err(); err != nil {
		return ports.FailedWithoutResponse(err)
	}

	resp := rec.Result()
	resp.Request = req
	return Classify(resp)
}

// Classify turns a response into Delivered, or FailedWithResponse when the
// status is 400 or above.
func Classify(resp *http.Response) ports.Outcome {
	if resp.StatusCode >= http.StatusBadRequest {
		return ports.FailedWithResponse(resp, &domain.StatusError{StatusCode: resp.StatusCode, Status: resp.Status})
	}
	return ports.Delivered(resp)
}

// Response builds an *http.Response carrying body.
func Response(status int, body string) *http.Response {
	return &http.Response{
		Status:        http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"text/xml; charset=utf-8"}},
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

// Reply returns the outcome a real HTTP transport would report for status and body.
func Reply(status int, body string) ports.Outcome {
	return Classify(Response(status, body))
}
