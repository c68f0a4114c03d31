package service

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Public references avoid 0/O and 1/I so they can be read over the phone.
const (
	referenceAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	referenceSize     = 8
)

const (
	quoteReferencePrefix    = "QR-"
	badPayerReferencePrefix = "BP-"
)

// newReference returns a short public reference such as QR-7KD2M9XA.
func newReference(prefix string) (string, error) {
	id, err := gonanoid.Generate(referenceAlphabet, referenceSize)
	if err != nil {
		return "", err
	}
	return prefix + id, nil
}
