package tether

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key property events.
type MetricsProvider interface {
	// OnStateChange is called when a property transitions between states.
	OnStateChange(path string, from, to State)

	// OnChangeReceived is called when the notifier delivers a value.
	OnChangeReceived(path string)

	// OnValueWritten is called when a value is written through to the target.
	OnValueWritten(path string)

	// OnViolation is called when the notifier delivers a failure event.
	OnViolation(path string)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnStateChange(_ string, _, _ State) {}
func (NoOpMetricsProvider) OnChangeReceived(_ string)          {}
func (NoOpMetricsProvider) OnValueWritten(_ string)            {}
func (NoOpMetricsProvider) OnViolation(_ string)               {}
