// Package keyring answers key presence questions against the chain CLI's
// key directory. Key creation itself goes through the chain client; this
// package only knows where the CLI keeps its key files.
package keyring

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDir returns the chain CLI's key directory under the user's home.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".commune", "key")
	}
	return filepath.Join(home, ".commune", "key")
}

// Keyring checks for key files in a directory laid out the way the chain
// CLI keeps it: one "<name>.json" file per key.
type Keyring struct {
	dir string
}

// New creates a keyring over dir.
func New(dir string) *Keyring {
	return &Keyring{dir: dir}
}

// Exists reports whether a key file for name is present.
func (k *Keyring) Exists(name string) (bool, error) {
	if name == "" {
		return false, errors.New("empty key name")
	}

	_, err := os.Stat(filepath.Join(k.dir, name+".json"))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat key file: %w", err)
}
