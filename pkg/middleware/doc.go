// Package middleware provides HTTP middleware for authentication and rate
// limiting.
//
// The Gate verifies bearer credentials and attaches the resolved identity
// to the request context. It serves double duty: wrapped as standard
// middleware for the static management routes, and invoked directly by the
// dynamic engine for endpoint definitions that declare auth.
package middleware
