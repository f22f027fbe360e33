package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/boqmatch/internal/domain"
)

// SummaryRow is one flattened export line: batch metadata joined to a
// single matched item. A failed file contributes one row carrying only
// its error.
type SummaryRow struct {
	ClientName         string  `parquet:"client_name"`
	ProjectName        string  `parquet:"project_name"`
	FileName           string  `parquet:"file_name"`
	InputDescription   string  `parquet:"input_description"`
	MatchedDescription string  `parquet:"matched_description"`
	Rate               float64 `parquet:"rate"`
	Confidence         int32   `parquet:"confidence"`
	Source             string  `parquet:"source"`
	Error              string  `parquet:"error"`
}

// SummaryRows flattens a batch record for export, preserving file order
// and item order within each file.
func SummaryRows(b *domain.BatchJob) []SummaryRow {
	var rows []SummaryRow
	for _, fr := range b.Results {
		if fr.Error != "" {
			rows = append(rows, SummaryRow{
				ClientName:  b.ClientName,
				ProjectName: b.ProjectName,
				FileName:    fr.FileName,
				Error:       fr.Error,
			})
			continue
		}
		for _, r := range fr.Results {
			rows = append(rows, SummaryRow{
				ClientName:         b.ClientName,
				ProjectName:        b.ProjectName,
				FileName:           fr.FileName,
				InputDescription:   r.InputDescription,
				MatchedDescription: r.MatchedDescription,
				Rate:               r.Rate,
				Confidence:         int32(r.Confidence),
				Source:             r.Source,
			})
		}
	}
	return rows
}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []SummaryRow) error {
	cw := csv.NewWriter(w)

	header := []string{
		"client_name", "project_name", "file_name",
		"input_description", "matched_description",
		"rate", "confidence", "source", "error",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			r.ClientName, r.ProjectName, r.FileName,
			r.InputDescription, r.MatchedDescription,
			strconv.FormatFloat(r.Rate, 'f', -1, 64),
			strconv.FormatInt(int64(r.Confidence), 10),
			r.Source, r.Error,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteParquet writes rows as a single-row-group parquet file.
func WriteParquet(w io.Writer, rows []SummaryRow) error {
	pw := parquet.NewGenericWriter[SummaryRow](w)
	if _, err := pw.Write(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
