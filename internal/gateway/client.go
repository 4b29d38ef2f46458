// Package gateway talks to the device gateway, the HTTP bridge that
// reaches the fleet. It implements the transport, health probe and
// device selector collaborators of the rollout orchestrator.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"fleet-rollout-api/internal/rollout"
)

// Client is safe for concurrent use by the orchestrator's workers.
type Client struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration

	HTTP *http.Client
}

func NewClient(baseURL, apiKey string, pollInterval time.Duration) *Client {
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		APIKey:       apiKey,
		PollInterval: pollInterval,
		HTTP:         &http.Client{Timeout: 30 * time.Second},
	}
}

type updateStatus struct {
	Phase   string `json:"phase"`   // idle, downloading, downloaded, flashing, installed, failed
	Version string `json:"version"` // version the phase refers to
	Reason  string `json:"reason,omitempty"`
}

// SendUpdate delivers the update command. A 2xx response means the
// device acknowledged and started downloading.
func (c *Client) SendUpdate(ctx context.Context, cmd rollout.UpdateCommand) error {
	body := map[string]string{
		"firmwareUrl":   cmd.FirmwareURL,
		"checksum":      cmd.Checksum,
		"targetVersion": cmd.TargetVersion,
	}
	return c.post(ctx, "/devices/"+url.PathEscape(cmd.DeviceID)+"/commands/update", body)
}

// SendRevert delivers a rollback command.
func (c *Client) SendRevert(ctx context.Context, cmd rollout.RevertCommand) error {
	body := map[string]string{
		"firmwareUrl":    cmd.FirmwareURL,
		"checksum":       cmd.Checksum,
		"revertVersion":  cmd.RevertVersion,
		"currentVersion": cmd.CurrentVersion,
	}
	return c.post(ctx, "/devices/"+url.PathEscape(cmd.DeviceID)+"/commands/revert", body)
}

// AwaitDownload polls the gateway until the device reports the image
// fetched, the device reports failure, or the context expires.
func (c *Client) AwaitDownload(ctx context.Context, deviceID, version string) error {
	return c.awaitPhase(ctx, deviceID, version, "downloaded")
}

// AwaitInstall polls until the device reports the image flashed.
func (c *Client) AwaitInstall(ctx context.Context, deviceID, version string) error {
	return c.awaitPhase(ctx, deviceID, version, "installed")
}

func (c *Client) awaitPhase(ctx context.Context, deviceID, version, want string) error {
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		var st updateStatus
		if err := c.get(ctx, "/devices/"+url.PathEscape(deviceID)+"/update-status", &st); err != nil {
			return err
		}
		if st.Version == version {
			switch {
			case st.Phase == want:
				return nil
			case st.Phase == "installed" && want == "downloaded":
				// Device raced past the download report.
				return nil
			case st.Phase == "failed":
				return &rollout.TransportError{Kind: classifyReason(st.Reason), Msg: st.Reason}
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Check asks the gateway for the device's current health and firmware
// version. Probe errors surface as unhealthy rather than failing the
// call; the orchestrator treats both the same way.
func (c *Client) Check(ctx context.Context, deviceID string) (rollout.HealthReport, error) {
	var out struct {
		Healthy         bool   `json:"healthy"`
		FirmwareVersion string `json:"firmwareVersion"`
	}
	if err := c.get(ctx, "/devices/"+url.PathEscape(deviceID)+"/health", &out); err != nil {
		return rollout.HealthReport{}, err
	}
	return rollout.HealthReport{Healthy: out.Healthy, VersionReported: out.FirmwareVersion}, nil
}

// Resolve lists device ids matching the label filter.
func (c *Client) Resolve(ctx context.Context, filter map[string]string) ([]string, error) {
	q := url.Values{}
	for k, v := range filter {
		q.Set(k, v)
	}
	var out []struct {
		ID string `json:"id"`
	}
	path := "/devices"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(out))
	for _, d := range out {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &rollout.TransportError{Kind: rollout.ClassifyError(err), Msg: err.Error()}
	}
	defer func(rc io.ReadCloser) {
		_ = rc.Close()
	}(resp.Body)

	return c.statusError(resp, path)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &rollout.TransportError{Kind: rollout.ClassifyError(err), Msg: err.Error()}
	}
	defer func(rc io.ReadCloser) {
		_ = rc.Close()
	}(resp.Body)

	if err := c.statusError(resp, path); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) authorize(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("X-Gateway-Key", c.APIKey)
	}
}

func (c *Client) statusError(resp *http.Response, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg := fmt.Sprintf("gateway %s returned %d", path, resp.StatusCode)
	log.Debug().Str("path", path).Int("status", resp.StatusCode).Msg("Gateway request failed")

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadGateway:
		return &rollout.TransportError{Kind: rollout.ErrKindDeviceUnreachable, Msg: msg}
	case resp.StatusCode == http.StatusConflict:
		return &rollout.TransportError{Kind: rollout.ErrKindRejected, Msg: msg}
	case resp.StatusCode == http.StatusGatewayTimeout:
		return &rollout.TransportError{Kind: rollout.ErrKindTimeout, Msg: msg}
	default:
		return &rollout.TransportError{Kind: rollout.ErrKindDeviceUnreachable, Msg: msg}
	}
}

func classifyReason(reason string) rollout.ErrorKind {
	switch reason {
	case "checksum_mismatch":
		return rollout.ErrKindChecksumMismatch
	case "flash_failure":
		return rollout.ErrKindFlashFailure
	case "rejected":
		return rollout.ErrKindRejected
	case "timeout":
		return rollout.ErrKindTimeout
	default:
		return rollout.ErrKindFlashFailure
	}
}
