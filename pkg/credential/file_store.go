package credential

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	log "github.com/sirupsen/logrus"
)

const defaultFileName = "klokku-reminder/refresh_token"

type FileStore struct {
	path string
}

// NewFileStore stores the secret at path, or under the XDG data directory
// when path is empty.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = filepath.Join(xdg.DataHome, defaultFileName)
	}
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(_ context.Context, secret string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	// Write to a sibling file and rename so a crash never leaves a truncated secret.
	tmp, err := os.CreateTemp(dir, ".refresh_token-*")
	if err != nil {
		return fmt.Errorf("failed to create credential file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.WriteString(secret); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to restrict credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close credential file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	log.Debugf("Stored refresh token in %s", s.path)
	return nil
}

func (s *FileStore) Load(_ context.Context) (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		log.Debugf("refresh token not loaded from %s: %v", s.path, err)
		return "", false
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", false
	}
	return secret, true
}
