package storefs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-gridexport/export"
)

const metaSuffix = ".meta.json"

// Store keeps exported documents on disk with a JSON sidecar per artifact.
type Store struct {
	Root string
	Now  func() time.Time
}

// NewStore creates a filesystem-backed artifact store.
func NewStore(root string) *Store {
	return &Store{Root: root, Now: time.Now}
}

type sidecar struct {
	ContentType string    `json:"content_type"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	SHA256      string    `json:"sha256"`
	CreatedAt   time.Time `json:"created_at"`
}

// Put writes the artifact atomically and records its metadata.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, meta export.ArtifactMeta) (export.ArtifactRef, error) {
	target, err := s.target(key)
	if err != nil {
		return export.ArtifactRef{}, err
	}
	if err := ctx.Err(); err != nil {
		return export.ArtifactRef{}, err
	}

	hash := sha256.New()
	size, err := writeAtomic(target, io.TeeReader(r, hash))
	if err != nil {
		return export.ArtifactRef{}, export.NewError(export.KindInternal, "write artifact failed", err)
	}

	meta.Size = size
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = s.now()
	}
	if meta.ContentType == "" {
		meta.ContentType = "application/pdf"
	}

	payload, err := json.Marshal(sidecar{
		ContentType: meta.ContentType,
		Filename:    meta.Filename,
		Size:        meta.Size,
		SHA256:      hex.EncodeToString(hash.Sum(nil)),
		CreatedAt:   meta.CreatedAt,
	})
	if err != nil {
		return export.ArtifactRef{}, err
	}
	if _, err := writeAtomic(target+metaSuffix, strings.NewReader(string(payload))); err != nil {
		_ = os.Remove(target)
		return export.ArtifactRef{}, export.NewError(export.KindInternal, "write artifact metadata failed", err)
	}

	return export.ArtifactRef{Key: key, Meta: meta}, nil
}

// Open returns a reader for the artifact and its metadata.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, export.ArtifactMeta, error) {
	_ = ctx
	target, err := s.target(key)
	if err != nil {
		return nil, export.ArtifactMeta{}, err
	}

	file, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, export.ArtifactMeta{}, export.NewError(export.KindNotFound, fmt.Sprintf("artifact %q not found", key), err)
		}
		return nil, export.ArtifactMeta{}, err
	}

	side, ok := readSidecar(target)
	meta := export.ArtifactMeta{
		ContentType: side.ContentType,
		Filename:    side.Filename,
		Size:        side.Size,
		CreatedAt:   side.CreatedAt,
	}
	if !ok {
		if info, err := file.Stat(); err == nil {
			meta.Size = info.Size()
			meta.CreatedAt = info.ModTime()
		}
		meta.ContentType = "application/pdf"
		meta.Filename = path.Base(key)
	}
	return file, meta, nil
}

// Delete removes an artifact and its metadata. Missing artifacts are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	_ = ctx
	target, err := s.target(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(target + metaSuffix); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Verify recomputes the checksum recorded when the artifact was stored.
func (s *Store) Verify(ctx context.Context, key string) error {
	rc, _, err := s.Open(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	target, _ := s.target(key)
	side, ok := readSidecar(target)
	if !ok || side.SHA256 == "" {
		return export.NewError(export.KindNotFound, fmt.Sprintf("artifact %q has no checksum", key), nil)
	}
	hash := sha256.New()
	if _, err := io.Copy(hash, rc); err != nil {
		return err
	}
	if got := hex.EncodeToString(hash.Sum(nil)); got != side.SHA256 {
		return export.NewError(export.KindInternal, fmt.Sprintf("artifact %q checksum mismatch", key), nil)
	}
	return nil
}

// Prune removes artifacts created before cutoff and returns their keys.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) ([]string, error) {
	root, err := s.root()
	if err != nil {
		return nil, err
	}
	removed := []string{}
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, metaSuffix) {
			return nil
		}
		target := strings.TrimSuffix(p, metaSuffix)
		side, ok := readSidecar(target)
		if !ok || !side.CreatedAt.Before(cutoff) {
			return nil
		}
		rel, err := filepath.Rel(root, target)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if err := s.Delete(ctx, key); err != nil {
			return err
		}
		removed = append(removed, key)
		return nil
	})
	return removed, err
}

func (s *Store) target(key string) (string, error) {
	if s == nil {
		return "", export.NewError(export.KindInternal, "store is nil", nil)
	}
	if key == "" {
		return "", export.NewError(export.KindValidation, "artifact key is required", nil)
	}
	root, err := s.root()
	if err != nil {
		return "", err
	}

	rel := strings.TrimPrefix(path.Clean("/"+key), "/")
	if rel == "" || rel == "." || strings.HasSuffix(rel, metaSuffix) {
		return "", export.NewError(export.KindValidation, "invalid artifact key", nil)
	}
	target := filepath.Join(root, filepath.FromSlash(rel))
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", export.NewError(export.KindValidation, "artifact key escapes root", nil)
	}
	return target, nil
}

func (s *Store) root() (string, error) {
	if s == nil {
		return "", export.NewError(export.KindInternal, "store is nil", nil)
	}
	if s.Root == "" {
		return "", export.NewError(export.KindValidation, "store root is required", nil)
	}
	return filepath.Abs(s.Root)
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// writeAtomic writes r to a temp file next to target and renames it into place.
func writeAtomic(target string, r io.Reader) (int64, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(dir, ".gridexport-*")
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	size, err := io.Copy(tmp, r)
	if err != nil {
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	return size, os.Rename(tmp.Name(), target)
}

func readSidecar(target string) (sidecar, bool) {
	data, err := os.ReadFile(target + metaSuffix)
	if err != nil {
		return sidecar{}, false
	}
	var side sidecar
	if err := json.Unmarshal(data, &side); err != nil {
		return sidecar{}, false
	}
	return side, true
}
