package distill

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SaveProfile serializes the profile fully in memory and writes it in one
// atomic step (same-dir temp file + rename), overwriting prior content. Last
// write wins; there are no merge or versioning semantics.
func SaveProfile(path string, p Profile, pretty bool) error {
	if path == "" {
		return errors.New("SaveProfile: path is empty")
	}
	p = p.Normalize()

	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(p, "", "  ")
	} else {
		b, err = json.Marshal(p)
	}
	if err != nil {
		return fmt.Errorf("SaveProfile: marshal: %w", err)
	}
	if err := writeFileAtomicSameDir(path, b, 0o644); err != nil {
		return fmt.Errorf("SaveProfile: write: %w", err)
	}
	return nil
}

// LoadProfile reads a previously saved profile for downstream consumers.
func LoadProfile(path string) (Profile, error) {
	if path == "" {
		return Profile{}, errors.New("LoadProfile: path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("LoadProfile: read file: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return Profile{}, fmt.Errorf("LoadProfile: unmarshal: %w", err)
	}
	return p.Normalize(), nil
}

// Truncate trims s to at most max bytes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

// SanitizeNewlines collapses CR/LF variants into literal "\n" escapes so a
// snippet fits on one log line.
func SanitizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func writeFileAtomicSameDir(path string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp_profile_*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write([]byte("\n")); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
