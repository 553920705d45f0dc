package storefs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-docexport/convert"
)

func TestStore_PutOpenDelete(t *testing.T) {
	store := NewStore(t.TempDir())
	store.Now = func() time.Time {
		return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	}

	ref, err := store.Put(context.Background(), "uploads/sample.docx", bytes.NewBufferString("hello"), FileMeta{Filename: "sample.docx"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if ref.Meta.Size != 5 {
		t.Fatalf("expected size 5, got %d", ref.Meta.Size)
	}
	if !ref.Meta.CreatedAt.Equal(store.Now()) {
		t.Fatalf("unexpected created at %v", ref.Meta.CreatedAt)
	}

	reader, meta, err := store.Open(context.Background(), "uploads/sample.docx")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(reader)
	_ = reader.Close()
	if string(data) != "hello" {
		t.Fatalf("unexpected content: %q", string(data))
	}
	if meta.Filename != "sample.docx" || meta.Size != 5 {
		t.Fatalf("unexpected meta: %+v", meta)
	}

	if err := store.Delete(context.Background(), "uploads/sample.docx"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := store.Open(context.Background(), "uploads/sample.docx"); !convert.IsKind(err, convert.KindLoadFailed) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestStore_PutLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	if _, err := store.Put(context.Background(), "a.docx", strings.NewReader("x"), FileMeta{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			t.Fatalf("unexpected temp file %q", entry.Name())
		}
	}
}

func TestStore_MaxBytes(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	store.MaxBytes = 3

	_, err := store.Put(context.Background(), "big.docx", strings.NewReader("too large"), FileMeta{})
	if !convert.IsKind(err, convert.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "big.docx")); !os.IsNotExist(err) {
		t.Fatalf("expected oversized upload to be discarded")
	}
}

func TestStore_KeyEscapesStayInsideRoot(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	path, err := store.Path("../../etc/passwd")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	abs, _ := filepath.Abs(root)
	if !strings.HasPrefix(path, abs+string(os.PathSeparator)) {
		t.Fatalf("expected %q to stay under %q", path, abs)
	}

	if _, err := store.Path(""); !convert.IsKind(err, convert.KindValidation) {
		t.Fatalf("expected empty key to fail, got %v", err)
	}
	if _, err := store.Path("/"); !convert.IsKind(err, convert.KindValidation) {
		t.Fatalf("expected root key to fail, got %v", err)
	}
}

func TestStore_TempDir(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	dir, err := store.TempDir()
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected temp dir to exist: %v", err)
	}
	if filepath.Base(dir) != "tmp" {
		t.Fatalf("unexpected temp dir %q", dir)
	}

	if _, err := (&Store{}).TempDir(); !convert.IsKind(err, convert.KindValidation) {
		t.Fatalf("expected missing root to fail, got %v", err)
	}
}

func TestStore_CanceledContext(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Put(ctx, "a.docx", strings.NewReader("x"), FileMeta{}); err == nil {
		t.Fatalf("expected canceled put to fail")
	}
}
