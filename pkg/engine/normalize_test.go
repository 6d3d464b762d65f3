package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", "/"},
		{"whitespace only", "   ", "/"},
		{"root", "/", "/"},
		{"bare segment", "users", "/users"},
		{"leading slash", "/users", "/users"},
		{"double leading slash", "//users", "/users"},
		{"trailing slash", "/users/", "/users"},
		{"double trailing slash", "/users//", "/users"},
		{"route prefix", "/api/users", "/users"},
		{"route prefix only", "/api", "/"},
		{"route prefix with trailing slash", "/api/", "/"},
		{"repeated prefix fully stripped", "/api/api/users", "/users"},
		{"repeated prefix only", "/api/api", "/"},
		{"prefix-like segment kept", "/apiary/users", "/apiary/users"},
		{"nested path", "/api/shop/orders", "/shop/orders"},
		{"surrounding whitespace", "  /users  ", "/users"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizePath(tc.input))
		})
	}
}

func TestNormalizePathEquivalentSpellings(t *testing.T) {
	spellings := []string{"users", "/users", "users/", "/users/", "/api/users", "/api/users/"}
	for _, s := range spellings {
		assert.Equal(t, "/users", NormalizePath(s), "spelling %q", s)
	}
}

func TestNormalizePathIdempotent(t *testing.T) {
	inputs := []string{"", "/", "users", "/api/users", "/api/api/users", "/api/api/api/", "/a/b/c/", "  x  "}
	for _, in := range inputs {
		once := NormalizePath(in)
		assert.Equal(t, once, NormalizePath(once), "input %q", in)
	}
}

func TestNormalizePathCustomPrefix(t *testing.T) {
	assert.Equal(t, "/users", NormalizePathPrefix("/v2/users", "/v2"))
	assert.Equal(t, "/api/users", NormalizePathPrefix("/api/users", "/v2"))
	assert.Equal(t, "/users", NormalizePathPrefix("/users", ""))
}
