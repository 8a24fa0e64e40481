package util

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// Application-level directory paths relative to user home.
const (
	AppDir    = ".svnscm"
	StatusDir = ".svnscm/status"
)

// ConfigFilename is the per-working-copy configuration file name.
const ConfigFilename = ".svnscm.toml"

// WorkingCopyKey returns a stable short identifier for a working-copy root.
// Used to name per-root files under StatusDir.
func WorkingCopyKey(root string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(root)))
	return hex.EncodeToString(sum[:])[:16]
}
