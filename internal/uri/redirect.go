package uri

import "strings"

// RewriteLocation maps a backend redirect target back into the client's view
// of the proxy. Locations under target are rebased onto the authority of
// requestURL plus mountPath; anything else is an external redirect and is
// returned unchanged.
func RewriteLocation(location, target, requestURL, mountPath string) string {
	suffix, ok := strings.CutPrefix(location, target)
	if !ok {
		return location
	}

	base := requestURL
	if i := strings.Index(base, "://"); i >= 0 {
		if j := strings.IndexByte(base[i+3:], '/'); j >= 0 {
			base = base[:i+3+j]
		}
	}

	// A target ending in '/' swallows the separator of the remaining path.
	if strings.HasSuffix(target, "/") && suffix != "" && suffix[0] != '/' &&
		suffix[0] != '?' && suffix[0] != '#' {
		suffix = "/" + suffix
	}
	return base + mountPath + suffix
}
