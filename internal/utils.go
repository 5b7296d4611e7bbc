// Internal utilities shared by the dev binaries
package internal

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomHex returns a prefixed random hex token, used by the stub
// services for fake transaction hashes and payer addresses.
func RandomHex(prefix string) string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return prefix + hex.EncodeToString(bytes)
}
