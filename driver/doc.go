// Package driver verifies credentials against configurable backends.
//
// A [Driver] receives the raw credential values read from the request in
// configured order (username first) and answers with the authenticated
// username, or "" when the credentials do not match. Errors are reserved for
// backends that cannot answer at all: an unreachable database, a password
// file set that does not exist, a broken Kerberos configuration.
//
// Drivers are built by name through a [Registry] from a loosely typed option
// map (see [Options]). Built-in drivers:
//
//	generic   static users map, credential tuples or a callback
//	htpasswd  Apache style password files
//	sql       database lookup through gorm (alias dbi)
//	dummy     accepts any non-empty username
//	totp      password plus a time-based one-time code
//	kerberos  KDC AS exchange
//
// # What this package must NOT do
//
//   - Touch request or response objects.
//   - Persist authentication state.
//   - Log plaintext credentials.
package driver
