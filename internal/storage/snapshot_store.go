// internal/storage/snapshot_store.go
package storage

import (
	"context"
	"errors"
	"os"

	apperrors "github.com/Corphon/Chronicle/internal/errors"
)

// SaveKey names the single autosave slot in every backend.
const SaveKey = "chronicle_save_v1"

// SnapshotStore persists the single opaque autosave blob.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, data []byte) error
	// LoadSnapshot returns a not-found AppError when nothing is saved.
	LoadSnapshot(ctx context.Context) ([]byte, error)
	DeleteSnapshot(ctx context.Context) error
}

// FileSnapshotStore keeps the blob as a JSON file under the data dir.
type FileSnapshotStore struct {
	fs  *FileStorage
	dir string
}

// NewFileSnapshotStore 创建文件快照存储
func NewFileSnapshotStore(fs *FileStorage) *FileSnapshotStore {
	return &FileSnapshotStore{fs: fs, dir: "saves"}
}

func (s *FileSnapshotStore) SaveSnapshot(_ context.Context, data []byte) error {
	return s.fs.SaveTextFile(s.dir, SaveKey+".json", data)
}

func (s *FileSnapshotStore) LoadSnapshot(_ context.Context) ([]byte, error) {
	data, err := s.fs.LoadTextFile(s.dir, SaveKey+".json")
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperrors.NewNotFoundError("no saved game", err)
	}
	return data, err
}

func (s *FileSnapshotStore) DeleteSnapshot(_ context.Context) error {
	return s.fs.DeleteFile(s.dir, SaveKey+".json")
}
