package uri

import (
	"strings"

	"rproxy-go/internal/model"
)

// QueryRewriter lets callers adjust the encoded query string before it is
// appended to the backend URI. The fragment has already been split off.
type QueryRewriter func(in *model.InboundRequest, query string) string

// IdentityQuery returns the query unchanged.
func IdentityQuery(_ *model.InboundRequest, query string) string {
	return query
}

// Rewriter maps client request URIs onto the target base URI.
type Rewriter struct {
	target       string
	sendFragment bool
	rewriteQuery QueryRewriter
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithQueryRewriter installs a query rewrite hook. A nil hook keeps the identity.
func WithQueryRewriter(f QueryRewriter) Option {
	return func(r *Rewriter) {
		if f != nil {
			r.rewriteQuery = f
		}
	}
}

// NewRewriter creates a Rewriter for the given target base URI.
func NewRewriter(target string, sendFragment bool, opts ...Option) *Rewriter {
	r := &Rewriter{
		target:       target,
		sendFragment: sendFragment,
		rewriteQuery: IdentityQuery,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RewriteURL builds the backend URI for in.
//
// The path info arrives decoded, so '%' is re-escaped; the query and
// fragment arrive encoded and keep their escapes.
func (r *Rewriter) RewriteURL(in *model.InboundRequest) string {
	var b strings.Builder
	b.Grow(500)
	b.WriteString(r.target)
	path := in.PathInfo
	if strings.HasSuffix(r.target, "/") {
		path = strings.TrimPrefix(path, "/")
	}
	b.WriteString(Encode(path, true))

	query, fragment, _ := strings.Cut(in.RawQuery, "#")

	query = r.rewriteQuery(in, query)
	if query != "" {
		b.WriteByte('?')
		b.WriteString(Encode(query, false))
	}

	if r.sendFragment && fragment != "" {
		b.WriteByte('#')
		b.WriteString(Encode(fragment, false))
	}
	return b.String()
}
