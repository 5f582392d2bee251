package session

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	idLength   = 16
)

// NewSessionID returns an opaque identifier for a new session. Identifiers
// are not checked against existing store contents; the alphabet is wide
// enough that collisions are negligible in practice. This is not a
// cryptographic security boundary.
func NewSessionID() (string, error) {
	return gonanoid.Generate(idAlphabet, idLength)
}
