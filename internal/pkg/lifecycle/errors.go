package lifecycle

import "fmt"

// ValidationError is a rejected input: malformed slug, duplicate
// slug/email, unknown plan. No external calls were attempted and
// nothing was created. Distinguishable from infrastructure failures so
// operator tooling can present the right next action.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
