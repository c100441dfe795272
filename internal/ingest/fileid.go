package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const fileIDPrefix = "file:"

// fileDocID returns a stable document id for a watched file path, so a file
// appearing again in a drop directory updates its document instead of
// duplicating it.
func fileDocID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return fileIDPrefix + hex.EncodeToString(hash[:])
}
