package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/streamforge/schema-registry/internal/api/types"
	"github.com/streamforge/schema-registry/internal/compatibility"
)

// Forwarder sends a write a replica received to the current primary
// (spec §4.5: "Replicas that receive write operations forward them to
// the primary endpoint"). The HTTP wire format mirrors the transport's
// own operation table so a forwarded write is indistinguishable, from
// the primary's point of view, from a direct client call.
type Forwarder interface {
	ForwardRegister(ctx context.Context, endpoint, subject, schemaText string) (int64, error)
	ForwardSetConfig(ctx context.Context, endpoint, subject string, policy compatibility.Mode) error
}

// HTTPForwarder is the default Forwarder, speaking the same JSON/HTTP
// shape the handlers package exposes.
type HTTPForwarder struct {
	Client *http.Client
}

// NewHTTPForwarder returns an HTTPForwarder with a bounded request
// timeout, suitable as the default for production wiring.
func NewHTTPForwarder() *HTTPForwarder {
	return &HTTPForwarder{Client: &http.Client{Timeout: 10 * time.Second}}
}

// ForwardRegister issues the register call against endpoint's primary
// API and returns the assigned schema id.
func (f *HTTPForwarder) ForwardRegister(ctx context.Context, endpoint, subject, schemaText string) (int64, error) {
	body, err := json.Marshal(types.RegisterSchemaRequest{Schema: schemaText})
	if err != nil {
		return 0, fmt.Errorf("encode forward request: %w", err)
	}

	target := fmt.Sprintf("%s/subjects/%s/versions", endpoint, url.PathEscape(subject))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client().Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: forward to primary: %v", ErrLogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: primary rejected forwarded register (status %d)", ErrNotPrimary, resp.StatusCode)
	}

	var decoded types.RegisterSchemaResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("decode forward response: %w", err)
	}
	return decoded.ID, nil
}

// ForwardSetConfig issues the set-config call against endpoint's
// primary API.
func (f *HTTPForwarder) ForwardSetConfig(ctx context.Context, endpoint, subject string, policy compatibility.Mode) error {
	body, err := json.Marshal(types.ConfigRequest{Compatibility: string(policy)})
	if err != nil {
		return fmt.Errorf("encode forward request: %w", err)
	}

	target := endpoint + "/config"
	if subject != "" {
		target = fmt.Sprintf("%s/config/%s", endpoint, url.PathEscape(subject))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client().Do(req)
	if err != nil {
		return fmt.Errorf("%w: forward to primary: %v", ErrLogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: primary rejected forwarded set-config (status %d)", ErrNotPrimary, resp.StatusCode)
	}
	return nil
}

func (f *HTTPForwarder) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}
