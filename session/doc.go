// Package session provides Redis-backed server-side sessions for hosts that
// want the session store instead of client-held cookie state.
//
// # Layout
//
// Each session is one Redis hash under "<prefix>:<id>" with a TTL. Ids are
// random UUIDs carried in a session cookie; ids that are not UUIDs are
// ignored so clients cannot choose arbitrary keys.
//
// With sliding expiration the TTL is renewed on the first read of each
// request, optionally with jitter so that sessions created together do not
// expire together.
//
// # Architecture boundaries
//
// This package owns the Redis layout and the session cookie. It does NOT
// interpret the fields it stores or enforce authentication policy.
package session
