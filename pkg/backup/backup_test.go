package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestExportImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.dms")
	content := bytes.Repeat([]byte("dms-data-block"), 4096)
	if err := os.WriteFile(srcPath, content, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	var compressed bytes.Buffer
	if err := Export(srcPath, &compressed, 3); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if compressed.Len() == 0 {
		t.Fatal("Export produced no output")
	}

	restoredPath := filepath.Join(dir, "restored.dms")
	if err := Import(bytes.NewReader(compressed.Bytes()), restoredPath); err != nil {
		t.Fatalf("Import: %v", err)
	}

	got, err := os.ReadFile(restoredPath)
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatal("restored content does not match the original")
	}
}

func TestImportRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "already-there.dms")
	if err := os.WriteFile(existing, []byte("keep me"), 0o644); err != nil {
		t.Fatalf("write existing: %v", err)
	}

	err := Import(bytes.NewReader(nil), existing)
	if err == nil {
		t.Fatal("expected Import to refuse overwriting an existing file")
	}
}
