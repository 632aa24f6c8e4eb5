package internaldefs

import (
	goAuthen "github.com/MrEthical07/goAuthen"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goAuthen.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   goAuthen.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goAuthen.MetricLoginSuccess, Name: "authen_login_success_total", Help: "Logins accepted by a driver."},
	{ID: goAuthen.MetricLoginFailure, Name: "authen_login_failure_total", Help: "Login attempts no driver accepted."},
	{ID: goAuthen.MetricLogout, Name: "authen_logout_total", Help: "Logouts of an authenticated user."},
	{ID: goAuthen.MetricLoginTimeout, Name: "authen_login_timeout_total", Help: "Logins ended by the timeout policy."},
	{ID: goAuthen.MetricRedirectToLogin, Name: "authen_redirect_to_login_total", Help: "Protected requests sent to the login form."},
	{ID: goAuthen.MetricStateTampered, Name: "authen_state_tampered_total", Help: "Client-held state that failed verification."},
	{ID: goAuthen.MetricBackendError, Name: "authen_backend_error_total", Help: "Driver or store failures."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAuthen.MetricInitializeLatency, Name: "authen_initialize_latency_seconds", Help: "Controller Initialize latency."},
}

// AuditDroppedName is the counter exporters emit for dropped audit events.
const AuditDroppedName = "authen_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets copies raw into a fixed eight-bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
