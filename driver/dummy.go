package driver

import "context"

// Dummy accepts any credentials with a non-empty username. It exists for
// development setups and tests.
type Dummy struct{}

// NewDummy ignores its options.
func NewDummy(Options, Deps) (Driver, error) { return Dummy{}, nil }

// VerifyCredentials returns the first credential.
func (Dummy) VerifyCredentials(_ context.Context, creds ...string) (string, error) {
	if len(creds) == 0 {
		return "", nil
	}
	return creds[0], nil
}
