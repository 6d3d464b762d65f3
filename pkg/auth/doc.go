// Package auth provides session credential issuance and verification for
// switchboard.
//
// Credentials are signed JWTs (HS256) carrying the subject identity. The
// TokenManager issues tokens with a configurable TTL and verifies inbound
// bearer credentials, distinguishing missing, malformed, and expired
// tokens. Password hashing uses bcrypt; plaintext passwords are never
// stored or returned.
package auth
