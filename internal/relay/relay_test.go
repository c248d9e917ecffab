package relay

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"rproxy-go/internal/model"
)

type fakeResponse struct {
	body    bytes.Buffer
	header  http.Header
	status  model.Status
	flushes int
	// failAfter makes Write fail once this many bytes were written; <0 never fails.
	failAfter int
}

func newFakeResponse() *fakeResponse {
	return &fakeResponse{header: make(http.Header), failAfter: -1}
}

func (f *fakeResponse) Header() http.Header       { return f.header }
func (f *fakeResponse) AddCookie(*model.Cookie)   {}
func (f *fakeResponse) WriteStatus(s model.Status) { f.status = s }
func (f *fakeResponse) Flush()                    { f.flushes++ }

func (f *fakeResponse) Write(p []byte) (int, error) {
	if f.failAfter >= 0 && f.body.Len()+len(p) > f.failAfter {
		return 0, errors.New("broken pipe")
	}
	return f.body.Write(p)
}

// trackingBody counts reads and records Close.
type trackingBody struct {
	io.Reader
	reads  int
	closed bool
}

func (b *trackingBody) Read(p []byte) (int, error) {
	b.reads++
	return b.Reader.Read(p)
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func TestRelay_StreamsBody(t *testing.T) {
	payload := strings.Repeat("x", 3*bufferSize+17)
	body := &trackingBody{Reader: strings.NewReader(payload)}
	w := newFakeResponse()

	err := Relay(w, &model.InboundResponse{
		Status: model.Status{Code: http.StatusCreated, Reason: "Created Here"},
		Body:   body,
	})
	if err != nil {
		t.Fatalf("Relay() error = %v", err)
	}

	if w.status != (model.Status{Code: http.StatusCreated, Reason: "Created Here"}) {
		t.Errorf("status = %+v, want code and reason copied", w.status)
	}
	if w.body.String() != payload {
		t.Errorf("body length = %d, want %d", w.body.Len(), len(payload))
	}
	if w.flushes < 4 {
		t.Errorf("flushes = %d, want one per chunk", w.flushes)
	}
	if !body.closed {
		t.Error("backend body not closed")
	}
}

func TestRelay_NotModified(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("stale entity")}
	w := newFakeResponse()
	w.header.Set("Content-Length", "12")

	err := Relay(w, &model.InboundResponse{
		Status: model.Status{Code: http.StatusNotModified, Reason: "Not Modified"},
		Body:   body,
	})
	if err != nil {
		t.Fatalf("Relay() error = %v", err)
	}

	if got := w.header.Get("Content-Length"); got != "0" {
		t.Errorf("Content-Length = %q, want %q", got, "0")
	}
	if w.body.Len() != 0 {
		t.Errorf("wrote %d body bytes, want 0", w.body.Len())
	}
	if body.reads != 0 {
		t.Errorf("backend body read %d times, want 0", body.reads)
	}
	if !body.closed {
		t.Error("backend body not closed")
	}
	if w.status.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304", w.status.Code)
	}
}

func TestRelay_NotModifiedWithoutEntity(t *testing.T) {
	w := newFakeResponse()
	if err := Relay(w, &model.InboundResponse{Status: model.Status{Code: http.StatusNotModified}}); err != nil {
		t.Fatalf("Relay() error = %v", err)
	}
	if got := w.header.Get("Content-Length"); got != "0" {
		t.Errorf("Content-Length = %q, want %q", got, "0")
	}
}

func TestRelay_MissingBody(t *testing.T) {
	w := newFakeResponse()
	if err := Relay(w, &model.InboundResponse{Status: model.Status{Code: http.StatusNoContent}}); err != nil {
		t.Fatalf("Relay() error = %v", err)
	}
	if w.status.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.status.Code)
	}
	if w.body.Len() != 0 {
		t.Errorf("wrote %d body bytes, want 0", w.body.Len())
	}
}

func TestRelay_ClientWriteFailureAborts(t *testing.T) {
	payload := strings.Repeat("y", 10*bufferSize)
	body := &trackingBody{Reader: strings.NewReader(payload)}
	w := newFakeResponse()
	w.failAfter = bufferSize

	err := Relay(w, &model.InboundResponse{Status: model.Status{Code: http.StatusOK}, Body: body})
	if !errors.Is(err, ErrClientWrite) {
		t.Fatalf("Relay() error = %v, want ErrClientWrite", err)
	}
	if body.reads != 2 {
		t.Errorf("backend body read %d times, want relay to stop after the failed write", body.reads)
	}
	if !body.closed {
		t.Error("backend body not closed after client failure")
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestRelay_BackendReadFailure(t *testing.T) {
	w := newFakeResponse()
	body := &trackingBody{Reader: errReader{}}

	err := Relay(w, &model.InboundResponse{Status: model.Status{Code: http.StatusOK}, Body: body})
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("Relay() error = %v, want io.ErrUnexpectedEOF", err)
	}
	if !body.closed {
		t.Error("backend body not closed")
	}
}
