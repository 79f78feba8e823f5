package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/IANewCool/estado-transparente-portal/types"
)

// FSStore is the local filesystem backend. Artifacts land under
// <root>/data/raw/<artifact_id>.raw. Writes go to a temp file in the same
// directory and are renamed into place so a crash never leaves a partial
// object at the final path.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem store rooted at root. The raw directory
// (<root>/data/raw) is created here if it does not exist.
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("fs store requires a root directory")
	}
	if err := os.MkdirAll(filepath.Join(root, "data", "raw"), 0o755); err != nil {
		return nil, wrapFS("init", root, err)
	}
	return &FSStore{root: root}, nil
}

// Kind returns the fs backend tag.
func (s *FSStore) Kind() types.StorageKind { return types.StorageFS }

// Put writes data atomically and returns the relative storage path.
func (s *FSStore) Put(_ context.Context, artifactID string, data []byte) (types.StorageKind, string, error) {
	rel := filepath.Join("data", "raw", artifactID+".raw")
	abs := filepath.Join(s.root, rel)

	tmp, err := os.CreateTemp(filepath.Dir(abs), ".put-*")
	if err != nil {
		return "", "", wrapFS("put", rel, err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", "", wrapFS("put", rel, err)
	}
	if err := tmp.Close(); err != nil {
		return "", "", wrapFS("put", rel, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return "", "", wrapFS("put", rel, err)
	}

	return types.StorageFS, rel, nil
}

// Get reads back the bytes at the relative storage path.
func (s *FSStore) Get(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, path))
	if err != nil {
		return nil, wrapFS("get", path, err)
	}
	return data, nil
}

// PresignGet returns "" — the filesystem backend has no presigning and the
// query service serves downloads directly.
func (s *FSStore) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "", nil
}

// Verify FSStore implements Store.
var _ Store = (*FSStore)(nil)
