package table

import (
	"context"
	"path/filepath"
	"testing"
)

func TestResolveURI(t *testing.T) {
	tests := []struct {
		uri     string
		want    string
		wantErr bool
	}{
		{"/data/run.db", "/data/run.db", false},
		{"relative/run.db", "relative/run.db", false},
		{"file:///data/run.db", "/data/run.db", false},
		{"", "", true},
		{"s3://bucket/run.db", "", true},
		{"http://host/run.db", "", true},
	}
	for _, tt := range tests {
		got, err := ResolveURI(tt.uri)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ResolveURI(%q) succeeded, want error", tt.uri)
			}
			continue
		}
		if err != nil {
			t.Errorf("ResolveURI(%q) failed: %v", tt.uri, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveURI(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestStageRef_CopiesTable(t *testing.T) {
	ctx := context.Background()

	// Build a source database with one published table.
	srcPath := filepath.Join(t.TempDir(), "upstream.db")
	src, err := Open(srcPath)
	if err != nil {
		t.Fatalf("Open(source) failed: %v", err)
	}
	frag, err := src.Create(ctx, "users", 1, []Column{
		{Name: "id", Type: TypeInt},
		{Name: "name", Type: TypeString},
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := frag.Append(ctx, []any{int64(1), "alpha"}); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	src.Close()

	dst := testStore(t)
	staged, err := StageRef(ctx, dst, srcPath, "users", 5)
	if err != nil {
		t.Fatalf("StageRef() failed: %v", err)
	}
	if staged.Name() != StageName(5) {
		t.Errorf("staged name = %q, want %q", staged.Name(), StageName(5))
	}
	if staged.RowCount() != 1 {
		t.Errorf("staged RowCount() = %d, want 1", staged.RowCount())
	}
	if staged.SchemaHash() != frag.SchemaHash() {
		t.Error("staging changed the schema hash")
	}
}

func TestStageRef_MissingFileIsFatal(t *testing.T) {
	ctx := context.Background()
	dst := testStore(t)

	_, err := StageRef(ctx, dst, filepath.Join(t.TempDir(), "gone.db"), "users", 1)
	if err == nil {
		t.Error("StageRef() with missing file succeeded, want error")
	}
}

func TestStageRef_MissingTableIsFatal(t *testing.T) {
	ctx := context.Background()

	srcPath := filepath.Join(t.TempDir(), "upstream.db")
	src, err := Open(srcPath)
	if err != nil {
		t.Fatalf("Open(source) failed: %v", err)
	}
	src.Close()

	dst := testStore(t)
	if _, err := StageRef(ctx, dst, srcPath, "users", 1); err == nil {
		t.Error("StageRef() with missing table succeeded, want error")
	}
}
