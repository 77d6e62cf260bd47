// Package blob stores uploaded document files on the local filesystem.
// Files land under root/<document_type>/ with a timestamped name so
// re-uploads never collide with a file the sweeper has yet to remove.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kycd/internal/kyc/models"
)

type FilesystemStore struct {
	root string
}

func NewFilesystem(root string) (*FilesystemStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	return &FilesystemStore{root: root}, nil
}

func (s *FilesystemStore) Save(_ context.Context, userID int64, docType models.DocumentType, fileName string, r io.Reader) (string, int64, error) {
	dir := filepath.Join(s.root, strings.ToLower(string(docType)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create document dir: %w", err)
	}

	ext := filepath.Ext(fileName)
	name := fmt.Sprintf("%d_%d%s", userID, time.Now().UnixNano(), ext)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create blob file: %w", err)
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("write blob file: %w", err)
	}
	return path, size, nil
}

// Delete removes the file, treating an already-missing blob as success
// so retention sweeps stay idempotent.
func (s *FilesystemStore) Delete(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob file: %w", err)
	}
	return nil
}
