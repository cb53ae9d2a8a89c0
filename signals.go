package tether

import "github.com/zoobzio/capitan"

// Property lifecycle signals.
var (
	// PropertyStarted is emitted when a Property is constructed.
	PropertyStarted = capitan.NewSignal(
		"tether.property.started",
		"Property observation started",
	)

	// PropertyEnded is emitted when a Property's notification stream ends.
	PropertyEnded = capitan.NewSignal(
		"tether.property.ended",
		"Property observation ended",
	)

	// PropertyStateChanged is emitted when a Property transitions between states.
	PropertyStateChanged = capitan.NewSignal(
		"tether.property.state.changed",
		"Property state transition",
	)
)

// Value signals.
var (
	// PropertyChangeReceived is emitted when the notifier delivers a new value.
	PropertyChangeReceived = capitan.NewSignal(
		"tether.property.change.received",
		"Change received from notifier",
	)

	// PropertyValueWritten is emitted when a value is written through to the target.
	PropertyValueWritten = capitan.NewSignal(
		"tether.property.value.written",
		"Value written to target",
	)

	// PropertyDecodeFailed is emitted when a typed view cannot decode a relayed value.
	PropertyDecodeFailed = capitan.NewSignal(
		"tether.property.decode.failed",
		"Relayed value could not be decoded",
	)

	// PropertyContractViolated is emitted when the notifier delivers a failure event.
	PropertyContractViolated = capitan.NewSignal(
		"tether.property.contract.violated",
		"Notifier delivered a failure event",
	)
)

// Binding signals.
var (
	// BindStarted is emitted when a source is bound to a Property.
	BindStarted = capitan.NewSignal(
		"tether.bind.started",
		"Binding started",
	)

	// BindStopped is emitted when a binding's source ends or is canceled.
	BindStopped = capitan.NewSignal(
		"tether.bind.stopped",
		"Binding stopped",
	)

	// BindFailed is emitted when a bound value cannot be written to the target.
	BindFailed = capitan.NewSignal(
		"tether.bind.failed",
		"Bound value write failed",
	)
)
