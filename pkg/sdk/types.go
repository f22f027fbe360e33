package boqmatch

import "time"

// Matching models accepted by the API.
const (
	ModelOpenAI = "openai"
	ModelCohere = "cohere"
	ModelHybrid = "hybrid"
)

// Export formats accepted by the API.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// Job statuses. Completed and failed are terminal.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// MatchResult is one matched line item.
type MatchResult struct {
	InputDescription   string  `json:"input_description,omitempty"`
	MatchedDescription string  `json:"matched_description"`
	Rate               float64 `json:"rate"`
	Confidence         int     `json:"confidence"`
	CosineScore        float64 `json:"cosine_score"`
	JaccardScore       float64 `json:"jaccard_score"`
	Source             string  `json:"source,omitempty"`
}

// FileInput is one file's extracted line-item descriptions.
type FileInput struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// Job is the server-side state of a single-file matching job.
type Job struct {
	ID        string        `json:"id"`
	Status    string        `json:"status"`
	Progress  int           `json:"progress"`
	FileName  string        `json:"file_name"`
	ItemCount int           `json:"item_count"`
	Logs      []string      `json:"logs"`
	Results   []MatchResult `json:"results,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Terminal reports whether the job has finished, successfully or not.
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// BatchFileResult is the per-file outcome inside a batch.
type BatchFileResult struct {
	FileName      string        `json:"file_name"`
	ItemCount     int           `json:"item_count"`
	AvgConfidence float64       `json:"avg_confidence"`
	ElapsedMS     int64         `json:"elapsed_ms"`
	Results       []MatchResult `json:"results,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// BatchJob is the server-side state of a multi-file matching job.
type BatchJob struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
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

// Terminal reports whether the batch has finished, successfully or not.
func (b *BatchJob) Terminal() bool {
	return b.Status == StatusCompleted || b.Status == StatusFailed
}

// Comparison holds both providers' rankings for the same items plus the
// percentage of items where they picked the same catalog entry.
type Comparison struct {
	ResultsA  []MatchResult `json:"results_a"`
	ResultsB  []MatchResult `json:"results_b"`
	Agreement float64       `json:"agreement"`
}

// HealthReport is the /health response.
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
