package hashutil

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Blake3Hex returns the hex encoded BLAKE3-256 digest of data.
// Used for memcache keys and content hashes.
func Blake3Hex(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
