package domain

import "time"

// Status is a job lifecycle state. Terminal states are final; retrying
// means submitting a new job.
type Status string

const (
	// StatusPending marks a job accepted but not yet picked up.
	StatusPending Status = "pending"
	// StatusProcessing marks a job currently executing.
	StatusProcessing Status = "processing"
	// StatusCompleted marks a successfully finished job.
	StatusCompleted Status = "completed"
	// StatusFailed marks a terminally failed job.
	StatusFailed Status = "failed"
)

// FileInput is one parsed file: the line-item descriptions extracted from a
// BoQ document. The matcher is metadata-agnostic; callers re-join unit/quantity
// metadata to results by index.
type FileInput struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// Job is a persisted single-file matching job. Mutated only by the processor
// that owns it; callers observe it through the persisted record.
type Job struct {
	ID        string        `json:"id"`
	Status    Status        `json:"status"`
	Progress  int           `json:"progress"`
	FileName  string        `json:"file_name"`
	ItemCount int           `json:"item_count"`
	Logs      []string      `json:"logs"`
	Results   []MatchResult `json:"results,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// BatchFileResult is the per-file outcome inside a batch. A failed file
// carries Error and empty Results; the batch itself still completes.
type BatchFileResult struct {
	FileName      string        `json:"file_name"`
	ItemCount     int           `json:"item_count"`
	AvgConfidence float64       `json:"avg_confidence"`
	ElapsedMS     int64         `json:"elapsed_ms"`
	Results       []MatchResult `json:"results,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// BatchJob is a persisted multi-file matching job. Files are processed
// sequentially; a single file failure does not fail the batch.
type BatchJob struct {
	ID          string            `json:"id"`
	Status      Status            `json:"status"`
	Progress    int               `json:"progress"`
	Model       string            `json:"model"`
	ClientName  string            `json:"client_name"`
	ProjectName string            `json:"project_name"`
	FileNames   []string          `json:"file_names"`
	Results     []BatchFileResult `json:"results,omitempty"`
	Error       string            `json:"error,omitempty"`
	Paused      bool              `json:"paused"`
	StartTime   time.Time         `json:"start_time"`
	EndTime     *time.Time        `json:"end_time,omitempty"`
}

// AvgConfidence returns the mean confidence across results, 0 for none.
func AvgConfidence(results []MatchResult) float64 {
	if len(results) == 0 {
		return 0
	}
	sum := 0
	for _, r := range results {
		sum += r.Confidence
	}
	return float64(sum) / float64(len(results))
}
