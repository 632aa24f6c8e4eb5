// Package goAuthen is a pluggable request authentication engine.
//
// An [Engine] is built once per process with [New] and holds the
// per-application configuration [Registry], the driver, store and filter
// registries, the audit dispatcher and the metrics counters. Each request
// gets its own [Controller] from [Engine.NewController]; the controller
// reads credentials from the [Host], verifies them against the configured
// drivers in order, and keeps the authentication state (username, attempt
// counter, login and access timestamps) in the configured store.
//
// # Request lifecycle
//
// Hosts call [Controller.Prerun] from their pre-dispatch hook. Prerun
// initializes the controller, handles logout requests and fresh logins,
// refreshes the access timestamp when a timeout policy is set, and sends
// unauthenticated requests for protected run-modes to the login run-mode.
//
// # Architecture boundaries
//
// goAuthen is the public surface. Credential backends live in driver,
// state persistence in store, and digest functions in filter. Concrete
// HTTP hosts live in runmode, middleware and ginhost.
//
// # What this package must NOT do
//
//   - Surface wrong credentials or tampered state as errors. Both are absorbed
//     into the unauthenticated state.
//   - Log passwords or other credential values beyond the username.
//   - Mutate an application's configuration after one of its controllers
//     has initialized.
package goAuthen
