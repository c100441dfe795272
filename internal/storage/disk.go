package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps uploaded file contents on disk, one directory per document
// under the owner's directory, so the original bytes can be served back.
type FileStore struct {
	root string
}

// NewFileStore creates a file store rooted at root.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create files directory: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Save writes the file contents for a document, replacing any previous file.
func (f *FileStore) Save(ownerID, documentID, filename string, data []byte) (string, error) {
	dir := f.documentDir(ownerID, documentID)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("failed to clear document directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create document directory: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

// Path returns the stored file path for a document.
func (f *FileStore) Path(ownerID, documentID string) (string, error) {
	dir := f.documentDir(ownerID, documentID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("document file %s: %w", documentID, ErrNotFound)
	}
	for _, e := range entries {
		if !e.IsDir() {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("document file %s: %w", documentID, ErrNotFound)
}

// Delete removes the stored file for a document. Absent files are not an error.
func (f *FileStore) Delete(ownerID, documentID string) error {
	return os.RemoveAll(f.documentDir(ownerID, documentID))
}

// DiskUsageBytes returns the total size of all stored files.
func (f *FileStore) DiskUsageBytes() (int64, error) {
	var total int64
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (f *FileStore) documentDir(ownerID, documentID string) string {
	return filepath.Join(f.root, filepath.Base(ownerID), filepath.Base(documentID))
}
