package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Remote calls an external identity verification service.
type Remote struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// NewRemote creates a client with configurable skip mode for dev.
func NewRemote(baseURL string, skip bool) *Remote {
	return &Remote{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

type verifyRequest struct {
	Credential string `json:"credential"`
}

type verifyResponse struct {
	SubjectID   string `json:"subject_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Error       string `json:"error"`
}

// Verify posts the credential to the identity service and returns the
// asserted subject.
func (c *Remote) Verify(ctx context.Context, credential string) (Identity, error) {
	if c.Skip {
		return Identity{SubjectID: "dev-subject", Email: "dev@classledger.local", DisplayName: "Dev User"}, nil
	}
	if credential == "" {
		return Identity{}, fmt.Errorf("credential required")
	}

	body, _ := json.Marshal(verifyRequest{Credential: credential})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/verify", bytes.NewReader(body))
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("identity service request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Identity{}, err
	}

	var out verifyResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return Identity{}, fmt.Errorf("identity service returned malformed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return Identity{}, fmt.Errorf("identity service rejected credential: %s", out.Error)
		}
		return Identity{}, fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}
	if out.SubjectID == "" {
		return Identity{}, fmt.Errorf("identity service returned empty subject")
	}
	return Identity{
		SubjectID:   out.SubjectID,
		Email:       out.Email,
		DisplayName: out.DisplayName,
		Role:        out.Role,
	}, nil
}

// Health pings the identity service.
func (c *Remote) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("identity service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
