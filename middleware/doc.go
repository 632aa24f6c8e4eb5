// Package middleware adapts the authentication controller to plain
// net/http handler chains.
//
// # Guards
//
//   - [Guard] requires a login; the wrapped handler runs only for an
//     authenticated user.
//   - [Attach] runs the controller without requiring a login.
//
// Both run Prerun for the request, serve the login form, logout and
// redirect responses themselves, and hand the controller to the wrapped
// handler through the request context ([Controller]).
//
// # What this package must NOT do
//
//   - Verify credentials or read state itself. The controller does both.
//   - Choose a state store. The application configuration does.
package middleware
