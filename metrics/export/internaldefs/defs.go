package internaldefs

import (
	goGate "github.com/MrEthical07/goGate"
)

// BucketCount is the number of latency buckets, +Inf included.
const BucketCount = 8

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: goGate.MetricLoginSuccess, Name: "gogate_login_success_total", Help: "Logins that established a session."},
	{ID: goGate.MetricLoginFailure, Name: "gogate_login_failure_total", Help: "Rejected or failed logins."},
	{ID: goGate.MetricLogout, Name: "gogate_logout_total", Help: "Logouts acknowledged by the Auth API."},
	{ID: goGate.MetricLogoutFailure, Name: "gogate_logout_failure_total", Help: "Logouts whose Auth API call failed."},
	{ID: goGate.MetricVerifySuccess, Name: "gogate_verify_success_total", Help: "Token verifications that refreshed the user."},
	{ID: goGate.MetricVerifyFailure, Name: "gogate_verify_failure_total", Help: "Token verifications that ended the session."},
	{ID: goGate.MetricVerifyNoToken, Name: "gogate_verify_no_token_total", Help: "Verifications skipped without a held token."},
	{ID: goGate.MetricTokenExpiredLocal, Name: "gogate_token_expired_local_total", Help: "Tokens rejected locally on their exp claim."},
	{ID: goGate.MetricSessionRestored, Name: "gogate_session_restored_total", Help: "Sessions restored from token storage."},
	{ID: goGate.MetricSessionPurged, Name: "gogate_session_purged_total", Help: "Purges of local session state."},
	{ID: goGate.MetricStorageFailure, Name: "gogate_storage_failure_total", Help: "Token or user storage errors."},
	{ID: goGate.MetricNavigationProceed, Name: "gogate_navigation_proceed_total", Help: "Guard decisions that let a transition through."},
	{ID: goGate.MetricNavigationRedirect, Name: "gogate_navigation_redirect_total", Help: "Guard redirects."},
	{ID: goGate.MetricNavigationBlock, Name: "gogate_navigation_block_total", Help: "Guard blocks."},
	{ID: goGate.MetricOperatorRedirect, Name: "gogate_operator_redirect_total", Help: "Restricted operators sent to the operator screen."},
	{ID: goGate.MetricPasswordPrompt, Name: "gogate_password_prompt_total", Help: "Transitions that raised the password prompt."},
}

// HistogramDefs lists every histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: goGate.MetricVerifyLatency, Name: "gogate_verify_latency_seconds", Help: "Auth API verify round-trip latency."},
}

// AuditDropped names the dropped audit events counter.
var AuditDropped = CounterDef{
	Name: "gogate_audit_dropped_total",
	Help: "Audit events dropped by a full dispatcher buffer.",
}

// HistogramBounds are the upper bucket bounds in seconds, as Prometheus le labels.
var HistogramBounds = [BucketCount]string{"0.025", "0.05", "0.1", "0.25", "0.5", "1", "2.5", "+Inf"}

// HistogramBoundSuffix spells [HistogramBounds] for instrument names.
var HistogramBoundSuffix = [BucketCount]string{"0_025", "0_05", "0_1", "0_25", "0_5", "1", "2_5", "inf"}

// CumulativeBuckets turns raw per-bucket counts into cumulative counts. Short or nil input
// is padded with zeros.
func CumulativeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
