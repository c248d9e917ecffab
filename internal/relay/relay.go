// Package relay writes the backend status and body to the client.
package relay

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"rproxy-go/internal/model"
)

// bufferSize is the chunk size used when streaming bodies.
const bufferSize = 32 * 1024

// ErrClientWrite wraps failures writing the body to the client.
var ErrClientWrite = errors.New("write to client")

// Relay writes the status of resp to w and streams its body. Response
// headers must already be on w. The backend body is always closed.
//
// A 304 never carries a body: Content-Length is forced to 0 and any backend
// entity is discarded.
func Relay(w model.ClientResponse, resp *model.InboundResponse) error {
	if resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}

	if resp.Status.Code == http.StatusNotModified {
		w.Header().Set("Content-Length", "0")
		w.WriteStatus(resp.Status)
		return nil
	}

	w.WriteStatus(resp.Status)
	if resp.Body == nil {
		return nil
	}
	return copyStream(w, resp.Body)
}

// copyStream copies from to w, flushing after every write so that long or
// unbounded bodies reach the client as they arrive.
func copyStream(w model.ClientResponse, from io.Reader) error {
	buf := make([]byte, bufferSize)
	for {
		n, rerr := from.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("%w: %w", ErrClientWrite, werr)
			}
			w.Flush()
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("read backend body: %w", rerr)
		}
	}
}
