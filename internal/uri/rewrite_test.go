package uri

import (
	"net/url"
	"testing"

	"rproxy-go/internal/model"
)

func TestRewriter_RewriteURL(t *testing.T) {
	tests := []struct {
		name         string
		target       string
		sendFragment bool
		pathInfo     string
		rawQuery     string
		want         string
	}{
		{
			name:     "path only",
			target:   "http://backend.example/target",
			pathInfo: "/my/path.html",
			want:     "http://backend.example/target/my/path.html",
		},
		{
			name:     "decoded percent re-escaped",
			target:   "http://backend.example/target",
			pathInfo: "/a%2fb",
			want:     "http://backend.example/target/a%252fb",
		},
		{
			name:         "query and fragment",
			target:       "http://backend.example/target",
			sendFragment: true,
			pathInfo:     "/x",
			rawQuery:     "a=1&b=2%20c#frag",
			want:         "http://backend.example/target/x?a=1&b=2%20c#frag",
		},
		{
			name:     "fragment dropped by default",
			target:   "http://backend.example/target",
			pathInfo: "/x",
			rawQuery: "a=1#frag",
			want:     "http://backend.example/target/x?a=1",
		},
		{
			name:         "fragment without query",
			target:       "http://backend.example/target",
			sendFragment: true,
			rawQuery:     "#frag",
			want:         "http://backend.example/target#frag",
		},
		{
			name:         "empty fragment omitted",
			target:       "http://backend.example/target",
			sendFragment: true,
			rawQuery:     "a=1#",
			want:         "http://backend.example/target?a=1",
		},
		{
			name:     "no path info",
			target:   "http://backend.example:8080",
			rawQuery: "q=a b",
			want:     "http://backend.example:8080?q=a%20b",
		},
		{
			name:     "target with trailing slash",
			target:   "http://backend.example/target/",
			pathInfo: "/x/y",
			want:     "http://backend.example/target/x/y",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRewriter(tt.target, tt.sendFragment)
			in := &model.InboundRequest{PathInfo: tt.pathInfo, RawQuery: tt.rawQuery}
			got := r.RewriteURL(in)
			if got != tt.want {
				t.Fatalf("RewriteURL() = %q, want %q", got, tt.want)
			}
			if _, err := url.Parse(got); err != nil {
				t.Errorf("RewriteURL() produced unparsable URI %q: %v", got, err)
			}
		})
	}
}

func TestRewriter_QueryRewriter(t *testing.T) {
	var seen string
	hook := func(in *model.InboundRequest, query string) string {
		seen = query
		if query == "" {
			return "added=1"
		}
		return query + "&added=1"
	}
	r := NewRewriter("http://backend.example", true, WithQueryRewriter(hook))

	got := r.RewriteURL(&model.InboundRequest{PathInfo: "/p", RawQuery: "a=1#frag"})
	if want := "http://backend.example/p?a=1&added=1#frag"; got != want {
		t.Errorf("RewriteURL() = %q, want %q", got, want)
	}
	if seen != "a=1" {
		t.Errorf("hook saw query %q, want %q (fragment must be split off first)", seen, "a=1")
	}

	got = r.RewriteURL(&model.InboundRequest{PathInfo: "/p"})
	if want := "http://backend.example/p?added=1"; got != want {
		t.Errorf("RewriteURL() = %q, want %q", got, want)
	}
}

func TestWithQueryRewriter_NilKeepsIdentity(t *testing.T) {
	r := NewRewriter("http://backend.example", false, WithQueryRewriter(nil))
	got := r.RewriteURL(&model.InboundRequest{RawQuery: "a=1"})
	if want := "http://backend.example?a=1"; got != want {
		t.Errorf("RewriteURL() = %q, want %q", got, want)
	}
}
