package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/boqmatch/internal/domain"
)

func TestParse_BasicCatalog(t *testing.T) {
	input := "description,rate\nconcrete foundation pour,100.50\nbrick wall,55\n"

	cat, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cat) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(cat))
	}
	if cat[0].Description != "concrete foundation pour" || cat[0].Rate != 100.50 {
		t.Errorf("unexpected entry 0: %+v", cat[0])
	}
}

func TestParse_ExtraColumnsAndBlankRows(t *testing.T) {
	input := "unit,description,rate\nm3,trench excavation,30\nm2,,999\nno,door frame,210\n"

	cat, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cat) != 2 {
		t.Fatalf("blank-description rows must be skipped, got %d entries", len(cat))
	}
	if cat[1].Description != "door frame" {
		t.Errorf("unexpected entry 1: %+v", cat[1])
	}
}

func TestParse_MissingColumns(t *testing.T) {
	_, err := Parse(strings.NewReader("item,price\nslab,10\n"))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestParse_BadRate(t *testing.T) {
	_, err := Parse(strings.NewReader("description,rate\nslab,ten\n"))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestParse_EmptyCatalog(t *testing.T) {
	_, err := Parse(strings.NewReader("description,rate\n"))
	if !errors.Is(err, domain.ErrEmptyCatalog) {
		t.Fatalf("expected ErrEmptyCatalog for catalog with no rows, got %v", err)
	}
}

func TestFileSource_LoadsOnceAndCaches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	if err := os.WriteFile(path, []byte("description,rate\nconcrete slab,10\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	src := NewFileSource(path)
	first, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Remove the file: the cached copy must still be served.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	second, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("expected cached catalog, got error: %v", err)
	}
	if len(second) != len(first) {
		t.Errorf("cached catalog differs: %d vs %d entries", len(second), len(first))
	}
}

func TestFileSource_MissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.csv"))
	if _, err := src.Load(context.Background()); err == nil {
		t.Fatal("expected error for missing catalog file")
	}
}
