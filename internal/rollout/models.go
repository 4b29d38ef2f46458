package rollout

import (
	"errors"
	"time"
)

var (
	// ErrValidation covers bad strategy params, empty target sets and
	// non-positive concurrency limits. Rejected at creation, never
	// enters execution.
	ErrValidation = errors.New("validation error")
	// ErrNotFound means no rollout matches the given id.
	ErrNotFound = errors.New("rollout not found")
	// ErrAlreadyRunning means start was called while the rollout is
	// already being driven.
	ErrAlreadyRunning = errors.New("rollout already running")
	// ErrNotRunning means a control operation needs an active or
	// resumable rollout and found none.
	ErrNotRunning = errors.New("rollout not running")
	// ErrConcurrencyLimit is an internal invariant violation: more jobs
	// in a dispatched state than the configured limit. It is a bug in
	// the orchestrator, never an operator-facing condition.
	ErrConcurrencyLimit = errors.New("concurrency limit exceeded")
)

// Status is the lifecycle state of a rollout.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusRunning    Status = "running"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusHalted     Status = "halted"
	StatusRolledBack Status = "rolled_back"
	StatusAborted    Status = "aborted"
)

// Terminal reports whether no further execution can happen.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRolledBack, StatusAborted:
		return true
	}
	return false
}

// GateDecision is the outcome of evaluating a completed wave.
type GateDecision string

const (
	GatePromote  GateDecision = "promote"
	GateHalt     GateDecision = "halt"
	GateRollback GateDecision = "rollback"
)

// Counters aggregates job outcomes across waves. Updated only at wave
// boundaries by the driving goroutine.
type Counters struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Rollout is one firmware-deployment campaign. Targets and waves are
// snapshotted at creation; later registry changes do not affect an
// in-flight rollout.
type Rollout struct {
	ID                   string
	ArtifactID           string
	DeviceType           string
	FirmwareVersion      string
	FirmwareURL          string
	Checksum             string
	Strategy             string
	Params               StrategyParams
	Targets              []string
	Waves                [][]string
	ConcurrencyLimit     int
	FailureRateThreshold float64
	AutoRollback         bool
	Status               Status
	WaveIndex            int
	Counters             Counters
	CreatedBy            string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ManualGated reports whether the orchestrator must wait for an
// explicit operator trigger between waves.
func (r *Rollout) ManualGated() bool {
	return r.Strategy == StrategyManual
}

// WaveResult is the resolved outcome of one wave.
type WaveResult struct {
	RolloutID    string       `json:"rolloutId"`
	WaveIndex    int          `json:"waveIndex"`
	Total        int          `json:"total"`
	Succeeded    int          `json:"succeeded"`
	Failed       int          `json:"failed"`
	Skipped      int          `json:"skipped"`
	FailureRate  float64      `json:"failureRate"`
	GateDecision GateDecision `json:"gateDecision"`
	CompletedAt  time.Time    `json:"completedAt"`
}

// StatusReport is the operator-facing view of a rollout.
type StatusReport struct {
	ID                   string       `json:"id"`
	ArtifactID           string       `json:"artifactId"`
	FirmwareVersion      string       `json:"firmwareVersion"`
	Strategy             string       `json:"strategy"`
	Status               Status       `json:"status"`
	WaveIndex            int          `json:"waveIndex"`
	WaveCount            int          `json:"waveCount"`
	TotalDevices         int          `json:"totalDevices"`
	Counters             Counters     `json:"counters"`
	Waves                []WaveResult `json:"waves"`
	CreatedAt            time.Time    `json:"createdAt"`
	UpdatedAt            time.Time    `json:"updatedAt"`
	FailureRateThreshold float64      `json:"failureRateThreshold"`
	AutoRollback         bool         `json:"autoRollback"`
}
