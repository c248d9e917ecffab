// Package model defines shared types for the proxy.
package model

import (
	"io"
	"net/http"
)

// InboundRequest is the client request as seen by the proxy front-end.
type InboundRequest struct {
	Method string
	// PathInfo is the request path below MountPath, already URL-decoded.
	PathInfo string
	// RawQuery is still encoded and may carry a trailing "#fragment".
	RawQuery string
	Header   http.Header
	Body     io.Reader
	// HasBody reports whether the client declared a body via
	// Content-Length or Transfer-Encoding.
	HasBody    bool
	RemoteAddr string
	Scheme     string
	// RequestURL is scheme://authority/path without the query.
	RequestURL string
	MountPath  string
}

// OutboundRequest is the request sent to the backend.
type OutboundRequest struct {
	Method string
	URI    string
	Header http.Header
	Body   io.Reader
	// ContentLength is -1 when unknown.
	ContentLength int64
}

// Status is a response status code with its optional reason phrase.
type Status struct {
	Code   int
	Reason string
}

// InboundResponse is the backend response. Body may be nil.
type InboundResponse struct {
	Status Status
	Header http.Header
	Body   io.ReadCloser
}

// ClientResponse is the response being written back to the client.
// Headers and cookies must be set before WriteStatus; body bytes after.
type ClientResponse interface {
	io.Writer
	Header() http.Header
	AddCookie(c *Cookie)
	WriteStatus(s Status)
	Flush()
}
