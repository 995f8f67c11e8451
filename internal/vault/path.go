package vault

import (
	"net/url"
	"strings"
)

// Reference locates one value in a KV v2 store.
type Reference struct {
	Mount string
	Path  string
	Key   string
}

func (r Reference) String() string {
	return r.Mount + "/" + r.Path + "#" + r.Key
}

// ResolveReference resolves token against root the way a relative link is
// resolved against a base URL, then splits the resulting path into mount,
// secret path and key. The first segment is the mount, the last is the key
// and everything between is the secret path. ok is false when the token is
// not a valid URI reference or fewer than three non-empty segments remain.
func ResolveReference(root *url.URL, token string) (ref Reference, ok bool) {
	rel, err := url.Parse(strings.TrimSpace(token))
	if err != nil {
		return Reference{}, false
	}

	var segments []string
	for _, s := range strings.Split(root.ResolveReference(rel).Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) < 3 {
		return Reference{}, false
	}

	return Reference{
		Mount: segments[0],
		Path:  strings.Join(segments[1:len(segments)-1], "/"),
		Key:   segments[len(segments)-1],
	}, true
}
