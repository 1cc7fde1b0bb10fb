package telegram

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gotd/td/session"
)

// FileSessionStorage keeps the bot's MTProto session on disk so restarts skip
// the auth handshake.
type FileSessionStorage struct {
	Path string
}

// newSessionStorage returns file storage for path, or an in-memory session
// when path is empty.
func newSessionStorage(path string) session.Storage {
	if path == "" {
		return new(session.StorageMemory)
	}
	return &FileSessionStorage{Path: path}
}

func (s *FileSessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(data) == 0) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read telegram session: %w", err)
	}
	return data, nil
}

// StoreSession writes through a temp file so a crash never leaves a torn session.
func (s *FileSessionStorage) StoreSession(ctx context.Context, data []byte) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write telegram session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}
