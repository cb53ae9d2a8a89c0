package tether

import "testing"

func TestNoOpMetricsProvider_DoesNotPanic(_ *testing.T) {
	var m NoOpMetricsProvider

	// These should not panic
	m.OnStateChange("volume", StatePending, StateLive)
	m.OnChangeReceived("volume")
	m.OnValueWritten("volume")
	m.OnViolation("volume")
}
