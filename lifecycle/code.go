package lifecycle

import (
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// codeEntropyBytes gives 128 bits per code, making collisions negligible
// without any coordination.
const codeEntropyBytes = 16

// NewCode returns a fresh opaque redemption code: base58-encoded random
// bytes, URL-safe and free of look-alike characters. Callers must treat
// the result as an unstructured unique identifier.
func NewCode() (string, error) {
	buf := make([]byte, codeEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate redemption code: %w", err)
	}
	return "ENT_" + base58.Encode(buf), nil
}
