package tether

import "github.com/zoobzio/capitan"

// Field keys for Property events.
var (
	// KeyPath is the observed attribute path.
	KeyPath = capitan.NewStringKey("path")

	// KeyState is the current state of the Property.
	KeyState = capitan.NewStringKey("state")

	// KeyOldState is the previous state before a transition.
	KeyOldState = capitan.NewStringKey("old_state")

	// KeyNewState is the new state after a transition.
	KeyNewState = capitan.NewStringKey("new_state")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyTarget is the type name of the observed object.
	KeyTarget = capitan.NewStringKey("target")

	// KeyDelivered is the number of values a binding wrote before stopping.
	KeyDelivered = capitan.NewIntKey("delivered")
)
