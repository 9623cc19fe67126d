package render

import (
	"fmt"
	"os"
)

// MissingFieldError reports a template placeholder with no value in the
// supplied variables. It surfaces misconfiguration at render time, before
// the text ever reaches the downstream service.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("template references missing config field %q", e.Field)
}

// Render substitutes ${NAME} placeholders in template with values from
// vars and returns the resulting text. It is a pure function: same
// template and vars always yield byte-identical output, and the caller is
// responsible for writing the result to its destination.
//
// The first placeholder absent from vars fails the render with a
// MissingFieldError. An empty-but-present value is legal; absence is not.
func Render(template string, vars map[string]string) (string, error) {
	var missing string

	out := os.Expand(template, func(name string) string {
		v, ok := vars[name]
		if !ok && missing == "" {
			missing = name
		}
		return v
	})

	if missing != "" {
		return "", &MissingFieldError{Field: missing}
	}
	return out, nil
}
