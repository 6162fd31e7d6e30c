package lead

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wovenchat/widget/internal/model/lead"
)

// Client submits contact captures to the lead-storage endpoint.
type Client struct {
	origin string
	http   *http.Client
}

// NewClient builds a lead client against the backend base URL.
func NewClient(origin string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		origin: origin,
		http:   &http.Client{Timeout: timeout},
	}
}

type leadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Submit posts one submission. The payload is transient: nothing is
// retained client-side whether the call succeeds or fails.
func (c *Client) Submit(ctx context.Context, submission lead.Submission) error {
	payload, err := json.Marshal(submission)
	if err != nil {
		return fmt.Errorf("encode lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.origin+"/api/lead", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build lead request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lead request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read lead response: %w", err)
	}

	var parsed leadResponse
	if decodeErr := json.Unmarshal(body, &parsed); decodeErr != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return fmt.Errorf("decode lead response: %w", decodeErr)
		}
		return fmt.Errorf("lead request failed with status %d", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := parsed.Error
		if detail == "" {
			detail = parsed.Message
		}
		if detail == "" {
			detail = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return fmt.Errorf("lead request failed: %s", detail)
	}

	if !parsed.Success {
		detail := parsed.Message
		if detail == "" {
			detail = "backend reported failure"
		}
		return fmt.Errorf("lead rejected: %s", detail)
	}
	return nil
}
