package ident

import "fmt"

// MalformedRefError is returned when a textual reference does not match any of the accepted forms.
type MalformedRefError struct {
	Ref    string
	Reason string
}

func (err MalformedRefError) Error() string {
	return fmt.Sprintf("malformed reference %q: %s", err.Ref, err.Reason)
}
