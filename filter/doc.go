// Package filter implements credential filters: pure functions that turn a
// plaintext credential into the form it is stored in.
//
// # Filter lists
//
// A filter spec is a comma separated list of filters applied left to right.
// Each entry is a name with an optional parameter:
//
//	lc,md5:base64
//	strip,sha256
//	bcrypt:12
//
// Digest filters (md5, sha1, sha256, sha512) take an encoding parameter: hex
// (the default), base64 (unpadded) or binary (alias raw).
//
// # Checking
//
// [Check] recomputes the filter list over a plaintext and compares the result
// with a stored value in constant time. For salted filters (bcrypt, argon2) the
// salt and cost come from the stored value. A digest filter without an
// explicit encoding detects the encoding from the stored length, so hex,
// base64 and binary digests stored by older systems keep verifying.
//
// # What this package must NOT do
//
//   - Perform I/O or keep per-call state.
//   - Log plaintext credentials.
package filter
