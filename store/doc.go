// Package store persists authentication state between requests.
//
// A [Store] is created per request around a non-owning [Host] handle: the
// host gives access to request cookies, lets the store emit Set-Cookie
// headers and may expose a server-side session via [SessionProvider].
//
// Built-in stores:
//
//	cookie   checksummed state in a client cookie (default without sessions)
//	session  fields kept in the host's server-side session
//	jwt      HS256 signed token in a client cookie
//
// Fields absent from the store read as "".
//
// # Cookie wire format
//
// The cookie value is the standard base64 encoding of NUL separated
// "key=value" pairs. The pair with key "c" is the md5 hex digest of the
// secret followed by the sorted values of all other pairs, joined by NUL.
// The digest covers values only, so field names are additionally checked
// against the store's field list on decode. Any payload that fails
// decoding, the field list or the checksum is treated as empty state.
package store
