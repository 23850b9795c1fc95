package assertion

import (
	"errors"
	"fmt"
)

// Every failure of a single invocation falls into one of these classes and
// is fatal to it. Use errors.Is to classify.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrSigning       = errors.New("signing error")
	ErrInternal      = errors.New("internal error")
)

var ErrMissingIssuer = fmt.Errorf("%w: you must specify an issuer for the JWT", ErrConfiguration)
