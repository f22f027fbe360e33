package boqmatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// StartBatchRequest describes a multi-file matching batch.
type StartBatchRequest struct {
	Files       []FileInput `json:"files"`
	Model       string      `json:"model"`
	ClientName  string      `json:"client_name"`
	ProjectName string      `json:"project_name"`
}

// StartBatch starts a batch and returns its ID. Processing is
// asynchronous; poll GetBatch or use WaitForBatch.
func (c *Client) StartBatch(ctx context.Context, req StartBatchRequest) (string, error) {
	var resp struct {
		BatchID string `json:"batch_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/batches/", req, &resp); err != nil {
		return "", err
	}
	return resp.BatchID, nil
}

// GetBatch fetches the current state of a batch.
func (c *Client) GetBatch(ctx context.Context, batchID string) (*BatchJob, error) {
	var b BatchJob
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/batches/"+batchID, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// WaitForBatch polls until the batch reaches a terminal status or ctx is
// done. A paused batch never terminates on its own; callers pausing a
// batch should bound the wait through ctx.
func (c *Client) WaitForBatch(ctx context.Context, batchID string) (*BatchJob, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		b, err := c.GetBatch(ctx, batchID)
		if err != nil {
			return nil, err
		}
		if b.Terminal() {
			return b, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// PauseBatch requests that the batch pause at the next file boundary.
func (c *Client) PauseBatch(ctx context.Context, batchID string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/batches/"+batchID+"/pause", nil, nil)
}

// ResumeBatch resumes a paused batch.
func (c *Client) ResumeBatch(ctx context.Context, batchID string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/batches/"+batchID+"/resume", nil, nil)
}

// ExportBatch downloads the batch summary in the given format
// (FormatCSV or FormatParquet).
func (c *Client) ExportBatch(ctx context.Context, batchID, format string) ([]byte, error) {
	path := fmt.Sprintf("/api/v1/batches/%s/export?format=%s", batchID, url.QueryEscape(format))

	resp, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer drainClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	return data, nil
}
