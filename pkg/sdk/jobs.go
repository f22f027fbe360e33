package boqmatch

import (
	"context"
	"net/http"
	"time"
)

// SubmitJobRequest describes a single-file matching job.
type SubmitJobRequest struct {
	FileName string   `json:"file_name"`
	Items    []string `json:"items"`
	Model    string   `json:"model"`
}

// SubmitJob enqueues a matching job and returns its ID. Processing is
// asynchronous; poll GetJob or use WaitForJob.
func (c *Client) SubmitJob(ctx context.Context, req SubmitJobRequest) (string, error) {
	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/jobs", req, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// GetJob fetches the current state of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/jobs/"+jobID, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// WaitForJob polls until the job reaches a terminal status or ctx is done.
// A failed job is returned without error; inspect Job.Status and Job.Error.
func (c *Client) WaitForJob(ctx context.Context, jobID string) (*Job, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		job, err := c.GetJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.Terminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// CompareRequest holds the items for a synchronous model comparison.
type CompareRequest struct {
	Items []string `json:"items"`
}

// Compare runs both providers against the catalog synchronously and
// returns their rankings side by side.
func (c *Client) Compare(ctx context.Context, req CompareRequest) (*Comparison, error) {
	var cmp Comparison
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/compare", req, &cmp); err != nil {
		return nil, err
	}
	return &cmp, nil
}
