// Package catalog loads the price catalog the matchers rank against.
package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/kailas-cloud/boqmatch/internal/domain"
)

// FileSource loads a CSV price catalog from disk once and serves the parsed
// copy afterwards. The file needs a header row with "description" and "rate"
// columns; extra columns are ignored.
type FileSource struct {
	path string

	mu     sync.Mutex
	cached domain.Catalog
}

// NewFileSource creates a catalog source for the given CSV path. The file
// is not touched until the first Load.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load returns the parsed catalog, reading the file on first call.
func (s *FileSource) Load(_ context.Context) (domain.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return s.cached, nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	cat, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", s.path, err)
	}

	s.cached = cat
	return cat, nil
}

// Parse reads a CSV catalog from r. Rows with a blank description are
// skipped; a malformed rate fails the whole parse.
func Parse(r io.Reader) (domain.Catalog, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	descCol, rateCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "description":
			descCol = i
		case "rate":
			rateCol = i
		}
	}
	if descCol < 0 || rateCol < 0 {
		return nil, fmt.Errorf("%w: catalog header must contain description and rate columns", domain.ErrValidation)
	}

	var descriptions []string
	var rates []float64
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		desc := strings.TrimSpace(record[descCol])
		if desc == "" {
			continue
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(record[rateCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: bad rate %q", domain.ErrValidation, line, record[rateCol])
		}

		descriptions = append(descriptions, desc)
		rates = append(rates, rate)
	}

	return domain.NewCatalog(descriptions, rates)
}
