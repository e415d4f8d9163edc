package store

import (
	"path/filepath"
	"testing"
)

func TestOpenMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if _, err := s.DB().Exec("CREATE TABLE t (x INTEGER)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	// a second statement must see the table created by the first
	if _, err := s.DB().Exec("INSERT INTO t (x) VALUES (1)"); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestOpenFilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segmenter.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.DB().Exec("CREATE TABLE t (x INTEGER); INSERT INTO t (x) VALUES (7)"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	var x int
	if err := s.DB().QueryRow("SELECT x FROM t").Scan(&x); err != nil {
		t.Fatalf("select: %v", err)
	}
	if x != 7 {
		t.Errorf("expected 7, got %d", x)
	}
	if s.Path() != path {
		t.Errorf("path: got %s", s.Path())
	}
}
