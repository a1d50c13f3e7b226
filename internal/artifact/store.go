// Package artifact persists the trained model, its encoders and the reporting
// documents as named blobs.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/crop-water-service/internal/domain"
)

// Store reads and writes named blobs. PutAll is all-or-nothing: either every
// blob is visible afterwards or none of them changed. GetAll reads several
// blobs from one committed PutAll, never a mix of two.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	GetAll(ctx context.Context, names ...string) (map[string][]byte, error)
	PutAll(ctx context.Context, blobs map[string][]byte) error
}

const (
	versionsDir = "versions"
	currentLink = "current"
)

// FileStore keeps every PutAll as its own directory under versions/. The
// current symlink names the committed version and is swapped with a single
// rename. Each blob name in the root is a symlink through current, so plain
// file readers also see the committed set.
//
//	models/
//	  current -> versions/set-1234
//	  crop_model.gob -> current/crop_model.gob
//	  versions/set-1234/crop_model.gob
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates a FileStore rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	return &FileStore{dir: dir, logger: logger}
}

// Dir returns the directory blobs are written to.
func (s *FileStore) Dir() string { return s.dir }

// Get reads one blob from the committed version. A missing blob is an
// *domain.ArtifactNotFoundError.
func (s *FileStore) Get(ctx context.Context, name string) ([]byte, error) {
	blobs, err := s.GetAll(ctx, name)
	if err != nil {
		return nil, err
	}
	return blobs[name], nil
}

// GetAll resolves the current version once and reads every name from it. If
// the version is pruned mid-read by a newer PutAll, the read starts over on
// the newer version.
func (s *FileStore) GetAll(ctx context.Context, names ...string) (map[string][]byte, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		version, err := s.currentVersion()
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.ArtifactNotFoundError{Name: firstName(names)}
		}
		if err != nil {
			return nil, err
		}

		blobs, missing, err := readVersion(filepath.Join(s.dir, version), names)
		if err != nil {
			return nil, err
		}
		if missing == "" {
			return blobs, nil
		}
		if latest, err := s.currentVersion(); err == nil && latest != version && attempt < 3 {
			continue
		}
		return nil, &domain.ArtifactNotFoundError{Name: missing}
	}
}

func (s *FileStore) currentVersion() (string, error) {
	target, err := os.Readlink(filepath.Join(s.dir, currentLink))
	if err != nil {
		return "", fmt.Errorf("resolve current artifacts: %w", err)
	}
	return target, nil
}

// readVersion returns the first name that does not exist in dir as missing.
func readVersion(dir string, names []string) (map[string][]byte, string, error) {
	blobs := make(map[string][]byte, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, name, nil
		}
		if err != nil {
			return nil, "", fmt.Errorf("read artifact %s: %w", name, err)
		}
		blobs[name] = data
	}
	return blobs, "", nil
}

func firstName(names []string) string {
	if len(names) == 0 {
		return currentLink
	}
	return names[0]
}

// PutAll stages every blob in a fresh version directory, syncs it, and then
// commits by renaming a new symlink over current. Nothing is visible before
// that rename; a failure up to and including it removes the staged version.
// Afterwards the per-name links are refreshed and versions older than the
// one just replaced are pruned.
func (s *FileStore) PutAll(ctx context.Context, blobs map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	versions := filepath.Join(s.dir, versionsDir)
	if err := os.MkdirAll(versions, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	staging, err := os.MkdirTemp(versions, "set-")
	if err != nil {
		s.removeIfEmpty(versions)
		return fmt.Errorf("create artifact version: %w", err)
	}
	abort := func() {
		if err := os.RemoveAll(staging); err != nil {
			s.logger.Warn("remove staged artifacts failed", "path", staging, "error", err)
		}
		s.removeIfEmpty(versions)
	}

	names := slices.Sorted(maps.Keys(blobs))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			abort()
			return err
		}
		if err := writeSynced(filepath.Join(staging, name), blobs[name]); err != nil {
			abort()
			return fmt.Errorf("write artifact %s: %w", name, err)
		}
	}
	if err := syncDir(staging); err != nil {
		abort()
		return fmt.Errorf("sync artifact version: %w", err)
	}
	if err := ctx.Err(); err != nil {
		abort()
		return err
	}

	previous, _ := s.currentVersion()
	version := filepath.Join(versionsDir, filepath.Base(staging))
	if err := replaceSymlink(version, filepath.Join(s.dir, currentLink)); err != nil {
		abort()
		return fmt.Errorf("commit artifacts: %w", err)
	}
	if err := syncDir(s.dir); err != nil {
		s.logger.Warn("sync artifact dir failed", "path", s.dir, "error", err)
	}

	for _, name := range names {
		link := filepath.Join(s.dir, name)
		if err := replaceSymlink(filepath.Join(currentLink, name), link); err != nil {
			s.logger.Warn("publish artifact link failed", "path", link, "error", err)
		}
	}
	s.prune(versions, version, previous)

	s.logger.Debug("artifacts committed", "version", version, "blobs", len(names))
	return nil
}

// prune removes every version except the committed one and the one it
// replaced, which readers may still be resolving.
func (s *FileStore) prune(versions string, keep ...string) {
	entries, err := os.ReadDir(versions)
	if err != nil {
		s.logger.Warn("list artifact versions failed", "error", err)
		return
	}
	for _, e := range entries {
		if slices.Contains(keep, filepath.Join(versionsDir, e.Name())) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(versions, e.Name())); err != nil {
			s.logger.Warn("prune artifact version failed", "version", e.Name(), "error", err)
		}
	}
}

func (s *FileStore) removeIfEmpty(dir string) {
	// Remove fails on a non-empty directory.
	_ = os.Remove(dir)
}

// replaceSymlink points link at target with one rename, so readers see
// either the old or the new target.
func replaceSymlink(target, link string) error {
	if existing, err := os.Readlink(link); err == nil && existing == target {
		return nil
	}
	tmp := fmt.Sprintf("%s.tmp-%d", link, time.Now().UnixNano())
	if err := os.Symlink(target, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, link); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// MemoryStore is an in-process Store, used by tests and by callers that do
// not need artifacts on disk.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[name]
	if !ok {
		return nil, &domain.ArtifactNotFoundError{Name: name}
	}
	return slices.Clone(data), nil
}

func (s *MemoryStore) GetAll(_ context.Context, names ...string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blobs := make(map[string][]byte, len(names))
	for _, name := range names {
		data, ok := s.blobs[name]
		if !ok {
			return nil, &domain.ArtifactNotFoundError{Name: name}
		}
		blobs[name] = slices.Clone(data)
	}
	return blobs, nil
}

func (s *MemoryStore) PutAll(_ context.Context, blobs map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, data := range blobs {
		s.blobs[name] = slices.Clone(data)
	}
	return nil
}
