package key

import (
	"errors"
	"time"
)

// ErrNoKeys is returned when key discovery finds no usable private key file.
var ErrNoKeys = errors.New("no keys found")

// PrivateKeySource is a candidate private key file found during discovery.
type PrivateKeySource struct {
	Path    string
	ModTime time.Time
}
