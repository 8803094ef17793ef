package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
)

// MailStore writes raw messages under dir, named by content hash.
type MailStore struct {
	dir string
}

func NewMailStore(dir string) *MailStore {
	return &MailStore{dir: dir}
}

// Store returns the content hash and the .eml path. Existing files are left
// untouched.
func (s *MailStore) Store(msg Message) (hash, path string, err error) {
	sum := sha256.Sum256(msg.Raw)
	hash = hex.EncodeToString(sum[:])

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", "", err
	}

	path = filepath.Join(s.dir, hash+".eml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, msg.Raw, 0o644); err != nil {
			return "", "", err
		}
	}
	return hash, path, nil
}
