// Package httputil provides HTTP handler utilities for the uniform response
// envelope, JSON decoding, request parsing, and shared middleware.
//
// Every response produced by the server uses the same envelope:
//
//	{"success": bool, "message": string, "data": ..., "error": ..., "details": [...]}
//
// Handlers should use the Write* helpers rather than encoding responses
// directly so the envelope stays consistent across the static and dynamic
// surfaces.
package httputil
