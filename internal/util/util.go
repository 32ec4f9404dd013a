// internal/util/util.go
package util

import (
	"net"
	"strconv"
	"strings"
)

// AssetURL joins a public path and a path relative to the build directory.
// An empty public path keeps the URL relative, which is what the dev server
// wants; "/" or "https://cdn.example.com/app/" make it absolute.
func AssetURL(publicPath, rel string) string {
	rel = strings.TrimPrefix(rel, "./")
	if publicPath == "" {
		return rel
	}
	return strings.TrimSuffix(publicPath, "/") + "/" + strings.TrimPrefix(rel, "/")
}

// ListenAddr formats a host and port for net.Listen.
func ListenAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// BrowseURL is the address printed for humans. Wildcard hosts are shown as
// localhost.
func BrowseURL(host string, port int) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + ListenAddr(host, port)
}

// Cond returns a when ok is true and b otherwise.
func Cond[T any](ok bool, a, b T) T {
	if ok {
		return a
	}
	return b
}

// InsertBefore inserts text before the last occurrence of tag in doc. Only
// ASCII letters are compared case-insensitively, so byte offsets into doc
// stay valid whatever else the document contains. found is false, and doc
// is returned as is, when the tag does not occur.
func InsertBefore(doc []byte, tag, text string) (out []byte, found bool) {
	i := lastIndexFold(doc, tag)
	if i < 0 {
		return doc, false
	}
	out = make([]byte, 0, len(doc)+len(text))
	out = append(out, doc[:i]...)
	out = append(out, text...)
	out = append(out, doc[i:]...)
	return out, true
}

func lastIndexFold(doc []byte, tag string) int {
	for i := len(doc) - len(tag); i >= 0; i-- {
		if equalFoldASCII(doc[i:i+len(tag)], tag) {
			return i
		}
	}
	return -1
}

func equalFoldASCII(b []byte, s string) bool {
	for i := 0; i < len(s); i++ {
		if lowerASCII(b[i]) != lowerASCII(s[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
