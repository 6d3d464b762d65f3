package engine

import "strings"

// DefaultRoutePrefix is the routing prefix segment stripped during path
// normalization. Stored definitions and inbound requests may spell paths
// with or without it and still compare equal.
const DefaultRoutePrefix = "/api"

// NormalizePath canonicalizes a path using the default route prefix.
func NormalizePath(path string) string {
	return NormalizePathPrefix(path, DefaultRoutePrefix)
}

// NormalizePathPrefix canonicalizes a path so that equivalent spellings
// ("users", "/users", "/users/", "/api/users") produce the same string.
// The result always begins with "/", never ends with "/" unless it is the
// root itself, and never begins with the prefix. The function is
// idempotent: normalizing a normalized path is a no-op.
func NormalizePathPrefix(path, prefix string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}

	// Exactly one leading slash.
	path = "/" + strings.TrimLeft(path, "/")

	// Strip trailing slashes, keeping the root.
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}

	// Strip every leading prefix segment so the result is a fixed point.
	// "/api" and "/api/api/users" both lose it; "/apiary" keeps its path
	// untouched.
	if prefix != "" && prefix != "/" {
		for {
			if path == prefix {
				return "/"
			}
			if !strings.HasPrefix(path, prefix+"/") {
				break
			}
			path = path[len(prefix):]
		}
	}

	if path == "" {
		return "/"
	}
	return path
}
