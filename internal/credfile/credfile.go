// Package credfile handles the client-visible credential file: the bearer
// token mirror with its expiry stamp, plus the small pieces of local state
// the dashboard keeps alongside it (the terminal logged-out marker and the
// last-used username). This is a leaf package imported by both session/ and
// the CLI to avoid duplication.
package credfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FilePerms restricts credential files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the data directory.
const DirPerms = 0o700

// TokenTTL is how long a persisted bearer token stays valid.
const TokenTTL = 7 * 24 * time.Hour

// Name is the current credential file name inside the data directory.
const Name = "credentials.json"

// legacyNames are file names earlier releases wrote the credential under.
// Clearing removes every variant so a stale copy can never resurrect a
// logged-out session.
var legacyNames = []string{"session.json", "token.json"}

// File is the on-disk format. Token and Expiry mirror the client-visible
// cookie; LoggedOut and LastUsername mirror local storage.
type File struct {
	Token        string    `json:"token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	LoggedOut    bool      `json:"logged_out,omitempty"`
	LastUsername string    `json:"last_username,omitempty"`
}

// HasLiveToken reports whether the file holds a non-empty, unexpired token.
func (f *File) HasLiveToken(now time.Time) bool {
	return f != nil && f.Token != "" && now.Before(f.Expiry)
}

// Path returns the credential file path inside dir.
func Path(dir string) string { return filepath.Join(dir, Name) }

// Variants returns every path the credential may live under inside dir,
// current name first.
func Variants(dir string) []string {
	paths := []string{Path(dir)}
	for _, n := range legacyNames {
		paths = append(paths, filepath.Join(dir, n))
	}

	return paths
}

// Load reads the credential file. Returns (nil, nil) if it does not exist.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("credfile: reading %s: %w", path, err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("credfile: decoding %s: %w", path, err)
	}

	return &f, nil
}

// Save writes the credential file atomically (write-to-temp + rename) with
// 0600 permissions. Never logs token values.
func Save(path string, f *File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("credfile: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("credfile: creating directory %s: %w", dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".cred-*.tmp")
	if err != nil {
		return fmt.Errorf("credfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("credfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("credfile: writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("credfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("credfile: renaming: %w", err)
	}

	success = true

	return nil
}

// WriteToken stores a bearer token with a fresh 7-day expiry, preserving the
// logged-out marker and last username already on disk.
func WriteToken(dir, token string, now time.Time) error {
	f, err := Load(Path(dir))
	if err != nil || f == nil {
		f = &File{}
	}

	f.Token = token
	f.Expiry = now.Add(TokenTTL)

	return Save(Path(dir), f)
}

// ClearToken removes the token from every path variant. The current file is
// rewritten with its non-token fields preserved; legacy variants are deleted
// outright. Missing files are not an error.
func ClearToken(dir string) error {
	var firstErr error

	for i, path := range Variants(dir) {
		if i == 0 {
			f, err := Load(path)
			if err != nil {
				firstErr = err
				continue
			}

			if f == nil {
				continue
			}

			f.Token = ""
			f.Expiry = time.Time{}

			if err := Save(path, f); err != nil && firstErr == nil {
				firstErr = err
			}

			continue
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// SetLoggedOut flips the terminal logged-out marker. Setting it also drops
// any token still on disk.
func SetLoggedOut(dir string, loggedOut bool) error {
	f, err := Load(Path(dir))
	if err != nil || f == nil {
		f = &File{}
	}

	f.LoggedOut = loggedOut
	if loggedOut {
		f.Token = ""
		f.Expiry = time.Time{}
	}

	return Save(Path(dir), f)
}

// SetLastUsername records the last-used username for display purposes only.
func SetLastUsername(dir, username string) error {
	f, err := Load(Path(dir))
	if err != nil || f == nil {
		f = &File{}
	}

	f.LastUsername = username

	return Save(Path(dir), f)
}
