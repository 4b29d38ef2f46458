package rollout

import (
	"context"
	"errors"
	"time"
)

// UpdateCommand is what the external device-command transport needs to
// drive one device update.
type UpdateCommand struct {
	DeviceID      string
	FirmwareURL   string
	Checksum      string
	TargetVersion string
}

// RevertCommand asks a device to reinstall its previous firmware.
type RevertCommand struct {
	DeviceID       string
	FirmwareURL    string
	Checksum       string
	RevertVersion  string
	CurrentVersion string
}

// Transport is the external device-command channel. All calls are
// context-bounded; the orchestrator supplies per-phase timeouts.
// Implementations live outside this core (MQTT bridge, HTTP gateway).
type Transport interface {
	// SendUpdate delivers the update command. A nil return means the
	// device acknowledged and started downloading.
	SendUpdate(ctx context.Context, cmd UpdateCommand) error
	// AwaitDownload blocks until the device reports the image fetched.
	AwaitDownload(ctx context.Context, deviceID, version string) error
	// AwaitInstall blocks until the device reports the image flashed.
	AwaitInstall(ctx context.Context, deviceID, version string) error
	// SendRevert delivers a rollback command.
	SendRevert(ctx context.Context, cmd RevertCommand) error
}

// HealthReport is the probe outcome for one device.
type HealthReport struct {
	Healthy         bool
	VersionReported string
}

// HealthProbe is the external post-flash verification collaborator.
type HealthProbe interface {
	Check(ctx context.Context, deviceID string) (HealthReport, error)
}

// DeviceSelector resolves a target selector against the external
// device registry. An explicit device list bypasses resolution.
type DeviceSelector interface {
	Resolve(ctx context.Context, filter map[string]string) ([]string, error)
}

// Notifier receives rollout lifecycle events for external alerting.
type Notifier interface {
	Dispatch(event string, data any)
}

// TransportError lets transport implementations classify failures into
// the job error taxonomy.
type TransportError struct {
	Kind ErrorKind
	Msg  string
}

func (e *TransportError) Error() string {
	if e.Msg != "" {
		return string(e.Kind) + ": " + e.Msg
	}
	return string(e.Kind)
}

// ClassifyError maps a transport or probe error onto an ErrorKind.
// Deadline expiry is a timeout; unclassified errors count as the
// device being unreachable, which keeps them retryable.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrKindNone
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTimeout
	}
	return ErrKindDeviceUnreachable
}

// Tuning bundles the orchestrator's timing knobs.
type Tuning struct {
	MaxAttempts     int
	BackoffBase     time.Duration
	BackoffMax      time.Duration
	DispatchTimeout time.Duration
	DownloadTimeout time.Duration
	FlashTimeout    time.Duration
	VerifyTimeout   time.Duration
}

// Backoff returns the exponential delay before retry attempt n (1-based).
func (t Tuning) Backoff(attempt int) time.Duration {
	d := t.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= t.BackoffMax {
			return t.BackoffMax
		}
	}
	if d > t.BackoffMax {
		return t.BackoffMax
	}
	return d
}
