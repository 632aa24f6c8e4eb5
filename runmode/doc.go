// Package runmode is a net/http host for the authentication controller.
//
// A [Mux] selects a handler by the "rm" request parameter, runs the
// controller's Prerun for the request and then calls the handler of the
// run-mode the controller left selected: the requested one, the login form,
// the logout handler or a redirect. Run-modes registered with
// [Mux.HandleProtected] require a login.
//
//	mux := runmode.NewMux(engine, "shop")
//	mux.Handle("start", home)
//	mux.HandleProtected("orders", orders)
//	http.ListenAndServe(":8080", mux)
//
// Handlers reach the controller with goAuthen.ControllerFromContext.
package runmode
