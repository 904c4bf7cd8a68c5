package trackerapi

import "sync/atomic"

// CredentialState tracks whether the upstream service has rejected the
// configured premium credential. The flag is process-wide and sticky:
// once the service answers 403 the premium tier stays disabled until
// Reset is called with a new credential value. Safe for concurrent use
// by any number of in-flight requests.
type CredentialState struct {
	invalid atomic.Bool
}

// MarkInvalid records a credential rejection. Idempotent.
func (s *CredentialState) MarkInvalid() {
	s.invalid.Store(true)
}

// Invalid reports whether the credential has been rejected.
func (s *CredentialState) Invalid() bool {
	return s.invalid.Load()
}

// Reset clears the rejection, to be called when the configured credential
// value itself changes.
func (s *CredentialState) Reset() {
	s.invalid.Store(false)
}
