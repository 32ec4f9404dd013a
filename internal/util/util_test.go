package util

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestAssetURL(t *testing.T) {
	tests := []struct {
		publicPath, rel, want string
	}{
		{"", "js/main.bundle.js", "js/main.bundle.js"},
		{"/", "js/main.bundle.js", "/js/main.bundle.js"},
		{"/static/", "./css/main.css", "/static/css/main.css"},
		{"https://cdn.example.com/app", "/images/a.png", "https://cdn.example.com/app/images/a.png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AssetURL(tt.publicPath, tt.rel))
	}
}

func TestBrowseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8081", BrowseURL("0.0.0.0", 8081))
	assert.Equal(t, "http://example.test:80", BrowseURL("example.test", 80))
	assert.Equal(t, "[::1]:9000", ListenAddr("::1", 9000))
}

func TestCond(t *testing.T) {
	assert.Equal(t, "a", Cond(true, "a", "b"))
	assert.Equal(t, 2, Cond(false, 1, 2))
}

func TestInsertBefore(t *testing.T) {
	tests := []struct {
		name, doc, tag, want string
		found                bool
	}{
		{"lowercase", "<body><p>x</p></body>", "</body>", "<body><p>x</p>!</body>", true},
		{"uppercase", "<BODY><p>x</p></BODY>", "</body>", "<BODY><p>x</p>!</BODY>", true},
		{"last occurrence", "</body></body>", "</body>", "</body>!</body>", true},
		{"missing", "<p>x</p>", "</body>", "<p>x</p>", false},
		{"kelvin sign", "<body>\u212a\u212a\u212a\u212a</BODY>", "</body>", "<body>\u212a\u212a\u212a\u212a!</BODY>", true},
		{"growing lowercase", "<body>" + strings.Repeat("\u023a", 40) + "</body>", "</body>", "<body>" + strings.Repeat("\u023a", 40) + "!</body>", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := InsertBefore([]byte(tt.doc), tt.tag, "!")
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, string(got))
			assert.True(t, utf8.Valid(got))
		})
	}
}
