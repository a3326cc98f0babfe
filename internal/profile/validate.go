package profile

import (
	"errors"
	"fmt"
	"regexp"
)

var nameRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ErrInvalidName is wrapped by every ValidateName failure.
var ErrInvalidName = errors.New("invalid profile name")

// ValidateName checks that name can be used as a directory under the sigma
// home and as a --profile value: lowercase letters, digits, '-' and '_', at
// most 64 characters, starting with a letter or digit.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("%w %q: use 1-64 of a-z 0-9 - _, starting with a letter or digit", ErrInvalidName, name)
	}
	return nil
}
