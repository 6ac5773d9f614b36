package density

import (
	"fmt"
)

// MalformedDefinitionError is returned when a function definition does not
// have the shape its declared type requires.
type MalformedDefinitionError struct {
	Reason string
}

func (e MalformedDefinitionError) Error() string {
	return "density: malformed function definition: " + e.Reason
}

// FunctionNotFoundError is returned when a referenced dependent function is
// not resolved by the end of loading. During loading it marks a forward
// reference that a later registration may still satisfy.
type FunctionNotFoundError struct {
	Key string
}

func (e FunctionNotFoundError) Error() string {
	return fmt.Sprintf("density: function %q not found", e.Key)
}

// InvalidNamespaceKeyError is returned for reference keys that are not of the
// form "namespace:path".
type InvalidNamespaceKeyError struct {
	Key string
}

func (e InvalidNamespaceKeyError) Error() string {
	return fmt.Sprintf("density: invalid namespace key %q", e.Key)
}
