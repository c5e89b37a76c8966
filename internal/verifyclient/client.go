package verifyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Result contains a 1:1 identity verification outcome for a student.
type Result struct {
	StudentID  string
	Verified   bool
	Similarity float64
	Threshold  float64
}

// Client calls the borrow-account / facial-recognition collaborator. It is
// the alternate identity channel for students without a registered device;
// everything past this hand-off point lives in that service.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client. With skip set, Verify always succeeds, for dev
// environments without the collaborator running.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // facial matching can take a while
		},
	}
}

// Verify performs 1:1 verification of a student against an enrolled identity.
func (c *Client) Verify(ctx context.Context, studentID, imageURL string) (*Result, error) {
	if c.Skip {
		return &Result{StudentID: studentID, Verified: true, Similarity: 0.92, Threshold: 0.45}, nil
	}
	if studentID == "" || imageURL == "" {
		return nil, fmt.Errorf("student id and image url required")
	}

	body, _ := json.Marshal(map[string]string{
		"user_id":   studentID,
		"image_url": imageURL,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("verify service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		UserID     string  `json:"user_id"`
		Verified   bool    `json:"verified"`
		Similarity float64 `json:"similarity"`
		Threshold  float64 `json:"threshold"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &Result{
		StudentID:  out.UserID,
		Verified:   out.Verified,
		Similarity: out.Similarity,
		Threshold:  out.Threshold,
	}, nil
}

// Health checks if the verify service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("verify service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("verify service unhealthy: %s", resp.Status)
	}

	return nil
}
