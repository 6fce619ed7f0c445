// internal/room/code.go
package room

import "crypto/rand"

// codeAlphabet excludes visually confusable characters (0/O, 1/I) so codes
// survive being read aloud or typed from a screenshot.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewCode returns a random join code of the given length.
func NewCode(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}
