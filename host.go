package goAuthen

import (
	"net/http"
	"net/url"
)

// Host is the request handling unit a Controller works against. It is the
// request object, the response headers and the run-mode dispatcher of one
// request. Cookie and SetCookie make every Host a store.Host.
//
// Hosts that keep server-side sessions also implement store.SessionProvider;
// hosts that mark protected run-modes at definition time implement [Marker].
type Host interface {
	// Param returns a request parameter, "" when absent.
	Param(name string) string
	Cookie(name string) (string, bool)
	// SetCookie adds c to the response, replacing a cookie of the same name
	// set earlier in this request.
	SetCookie(c *http.Cookie)
	// Header returns the response headers.
	Header() http.Header
	// URL returns the request URL.
	URL() *url.URL

	CurrentRunmode() string
	OverrideRunmode(name string)
	HasRunmode(name string) bool
	RegisterRunmode(name string, h http.HandlerFunc)
}

// Marker reports run-modes marked as protected by the host itself.
type Marker interface {
	RunmodeMarked(name string) bool
}
