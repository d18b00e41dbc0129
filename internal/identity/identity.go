// Package identity manages the local caller principal.
//
// Principals are opaque strings; the CLI mints one per installation as a
// ULID and persists it at <base>/identity. The execution environment is
// trusted to supply the caller honestly — authentication is out of scope.
package identity

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Load returns the local principal, minting and persisting one on first use.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.keep.
func Load(baseDir string) (string, error) {
	path := filepath.Join(baseDir, "identity")

	data, err := os.ReadFile(path)
	if err == nil {
		if principal := strings.TrimSpace(string(data)); principal != "" {
			return principal, nil
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	principal, err := mint()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(principal+"\n"), 0600); err != nil {
		return "", err
	}

	return principal, nil
}

// mint generates a new ULID principal.
func mint() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
