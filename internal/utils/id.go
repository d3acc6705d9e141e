package utils // package utils provides small helpers shared across layers

import "github.com/google/uuid" // RFC 4122 UUID generation backed by crypto/rand

// NewID returns a random (version 4) UUID in its canonical 36 character
// text form.  128 bits of randomness make a collision between identifiers
// issued in one process practically impossible, and the call never blocks
// on anything but the system random source.
func NewID() string {
	return uuid.NewString()
}
