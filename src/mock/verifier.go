package mock

// Verifier answers questions about a snapshot of the call log.
type Verifier struct {
	calls []CallLogEntry
}

// NewVerifier returns a Verifier over the given calls.
func NewVerifier(calls []CallLogEntry) *Verifier {
	return &Verifier{calls: calls}
}

// Count returns how many times m was called.
func (v *Verifier) Count(m MethodType) int {
	n := 0
	for _, c := range v.calls {
		if c.Method == m {
			n++
		}
	}
	return n
}

// MethodExecutedAtLeastOnce ...
func (v *Verifier) MethodExecutedAtLeastOnce(m MethodType) bool {
	return v.Count(m) > 0
}

// MethodNeverExecuted ...
func (v *Verifier) MethodNeverExecuted(m MethodType) bool {
	return v.Count(m) == 0
}

// MethodExecutedExactly ...
func (v *Verifier) MethodExecutedExactly(m MethodType, n int) bool {
	return v.Count(m) == n
}

// Calls returns the recorded calls in arrival order.
func (v *Verifier) Calls() []CallLogEntry {
	return v.calls
}
