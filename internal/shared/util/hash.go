package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// HashOwnerKey returns a path-safe namespace for an owner id, so object keys do
// not expose raw user identifiers.
func HashOwnerKey(ownerID int64) string {
	sum := sha256.Sum256([]byte("owner:" + strconv.FormatInt(ownerID, 10)))
	return hex.EncodeToString(sum[:])
}
