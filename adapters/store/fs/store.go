package storefs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-docexport/convert"
)

// FileMeta describes a stored upload or converted file.
type FileMeta struct {
	Filename    string    `json:"filename,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// FileRef points at a stored file.
type FileRef struct {
	Key  string
	Path string
	Meta FileMeta
}

// Store keeps uploads and converted documents under Root.
type Store struct {
	Root     string
	MaxBytes int64
	Now      func() time.Time
}

// NewStore creates a filesystem-backed store.
func NewStore(root string) *Store {
	return &Store{Root: root, Now: time.Now}
}

// Put writes r under key through a temp file and rename.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, meta FileMeta) (FileRef, error) {
	if err := s.check(key); err != nil {
		return FileRef{}, err
	}
	if err := ctx.Err(); err != nil {
		return FileRef{}, err
	}

	pathOnDisk, err := s.resolvePath(key)
	if err != nil {
		return FileRef{}, err
	}

	dir := filepath.Dir(pathOnDisk)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return FileRef{}, convert.NewError(convert.KindInternal, "create store dir failed", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return FileRef{}, convert.NewError(convert.KindInternal, "create temp file failed", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	src := r
	if s.MaxBytes > 0 {
		src = io.LimitReader(r, s.MaxBytes+1)
	}
	size, err := io.Copy(tmp, src)
	if err != nil {
		return FileRef{}, convert.NewError(convert.KindInternal, "write upload failed", err)
	}
	if s.MaxBytes > 0 && size > s.MaxBytes {
		return FileRef{}, convert.NewError(convert.KindValidation, fmt.Sprintf("file exceeds %d bytes", s.MaxBytes), nil)
	}
	if err := tmp.Sync(); err != nil {
		return FileRef{}, err
	}
	if err := tmp.Close(); err != nil {
		return FileRef{}, err
	}
	if err := os.Rename(tmp.Name(), pathOnDisk); err != nil {
		return FileRef{}, err
	}

	meta.Size = size
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = s.now()
	}
	if meta.ContentType == "" {
		meta.ContentType = mime.TypeByExtension(filepath.Ext(pathOnDisk))
	}
	if err := s.writeMeta(pathOnDisk, meta); err != nil {
		return FileRef{}, err
	}

	return FileRef{Key: key, Path: pathOnDisk, Meta: meta}, nil
}

// Open reads a stored file.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, FileMeta, error) {
	_ = ctx
	if err := s.check(key); err != nil {
		return nil, FileMeta{}, err
	}

	pathOnDisk, err := s.resolvePath(key)
	if err != nil {
		return nil, FileMeta{}, err
	}

	file, err := os.Open(pathOnDisk)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, FileMeta{}, convert.NewError(convert.KindLoadFailed, fmt.Sprintf("file %q not found", key), err)
		}
		return nil, FileMeta{}, err
	}

	meta := s.readMeta(pathOnDisk)
	if meta.ContentType == "" {
		meta.ContentType = mime.TypeByExtension(filepath.Ext(pathOnDisk))
	}
	if meta.Size == 0 {
		if info, err := file.Stat(); err == nil {
			meta.Size = info.Size()
			if meta.CreatedAt.IsZero() {
				meta.CreatedAt = info.ModTime()
			}
		}
	}
	return file, meta, nil
}

// Delete removes a stored file and its metadata.
func (s *Store) Delete(ctx context.Context, key string) error {
	_ = ctx
	if err := s.check(key); err != nil {
		return err
	}
	pathOnDisk, err := s.resolvePath(key)
	if err != nil {
		return err
	}
	_ = os.Remove(pathOnDisk)
	_ = os.Remove(metaPath(pathOnDisk))
	return nil
}

// Path returns the on-disk location for key.
func (s *Store) Path(key string) (string, error) {
	if err := s.check(key); err != nil {
		return "", err
	}
	return s.resolvePath(key)
}

// TempDir returns <root>/tmp, creating it when missing. It is handed to the
// PDF writers as their working directory.
func (s *Store) TempDir() (string, error) {
	if s == nil || s.Root == "" {
		return "", convert.NewError(convert.KindValidation, "store root is required", nil)
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, "tmp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", convert.NewError(convert.KindInternal, "create temp dir failed", err)
	}
	return dir, nil
}

func (s *Store) check(key string) error {
	if s == nil {
		return convert.NewError(convert.KindInternal, "store is nil", nil)
	}
	if s.Root == "" {
		return convert.NewError(convert.KindValidation, "store root is required", nil)
	}
	if key == "" {
		return convert.NewError(convert.KindValidation, "file key is required", nil)
	}
	return nil
}

func (s *Store) resolvePath(key string) (string, error) {
	clean := path.Clean("/" + key)
	rel := strings.TrimPrefix(clean, "/")
	if rel == "" || rel == "." {
		return "", convert.NewError(convert.KindValidation, "invalid file key", nil)
	}

	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	target := filepath.Join(root, filepath.FromSlash(rel))
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) && target != root {
		return "", convert.NewError(convert.KindValidation, "file key escapes root", nil)
	}
	return target, nil
}

func (s *Store) writeMeta(pathOnDisk string, meta FileMeta) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(pathOnDisk), ".meta-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(payload); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), metaPath(pathOnDisk))
}

func (s *Store) readMeta(pathOnDisk string) FileMeta {
	data, err := os.ReadFile(metaPath(pathOnDisk))
	if err != nil {
		return FileMeta{}
	}
	var meta FileMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return FileMeta{}
	}
	return meta
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func metaPath(pathOnDisk string) string {
	return pathOnDisk + ".meta.json"
}
