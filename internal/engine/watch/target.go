package watch

import (
	"crypto/sha256"
	"encoding/hex"
)

// TargetIDFromURI derives a stable target id from a webhook URI. The same
// endpoint always maps to the same id, which is what lets subscribe calls
// deduplicate targets instead of stacking duplicates.
func TargetIDFromURI(uri string) string {
	sum := sha256.Sum256([]byte(uri))
	return hex.EncodeToString(sum[:])[:16]
}
