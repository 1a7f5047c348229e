package eavesdrop

// Stats is a snapshot of registry activity.
type Stats struct {
	// Published counts publications that passed input validation.
	Published uint64

	// Delivered counts successful callback invocations, listeners and
	// eavesdroppers alike.
	Delivered uint64

	// Failures counts callbacks that returned an error.
	Failures uint64

	// Panics counts callbacks that panicked.
	Panics uint64

	// Listeners is the number of listeners registered on the global scope.
	// Publisher scopes report their own counts.
	Listeners int

	// Eavesdroppers is the number of registered eavesdroppers.
	Eavesdroppers int
}
