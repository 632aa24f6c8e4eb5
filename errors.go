package goAuthen

import "errors"

var (
	// ErrConfigFrozen is returned by Configure once a controller of the
	// application has initialized.
	ErrConfigFrozen = errors.New("configuration is frozen")
	// ErrUnknownOption reports option names that are not recognized.
	ErrUnknownOption = errors.New("unknown option")
	// ErrInvalidOption reports a recognized option with a value of the wrong shape.
	ErrInvalidOption = errors.New("invalid option")
	// ErrInvalidDuration reports a duration string that does not parse.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrDriverNotFound is returned when a configured driver is not registered.
	ErrDriverNotFound = errors.New("driver not found")
	// ErrStoreNotFound is returned when the configured store is not registered.
	ErrStoreNotFound = errors.New("store not found")
	// ErrBackend marks a driver or store that failed to answer. It is never
	// returned for wrong credentials.
	ErrBackend = errors.New("authentication backend failure")
	// ErrMissingSecret is returned when a signing store has no SECRET.
	ErrMissingSecret = errors.New("store secret is required")
	// ErrEngineNotReady is returned when a nil or closed engine is used.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrUnknownApp is returned for an application that was never configured.
	ErrUnknownApp = errors.New("unknown application")
)
