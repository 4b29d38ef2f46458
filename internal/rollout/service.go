package rollout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"fleet-rollout-api/internal/firmware"
)

// CreateRequest is the rollout-creation surface exposed over HTTP and
// the CLI. Either Devices (explicit list) or Filter (resolved by the
// external device registry) selects the targets.
type CreateRequest struct {
	ArtifactID           string            `json:"artifactId"`
	Strategy             string            `json:"strategy"`
	Params               StrategyParams    `json:"params"`
	Devices              []string          `json:"devices,omitempty"`
	Filter               map[string]string `json:"filter,omitempty"`
	ConcurrencyLimit     int               `json:"concurrencyLimit"`
	OverrideApprovalGate bool              `json:"overrideApprovalGate,omitempty"`
	FailureRateThreshold float64           `json:"failureRateThreshold,omitempty"`
	AutoRollback         *bool             `json:"autoRollback,omitempty"`
	CreatedBy            string            `json:"createdBy,omitempty"`
}

// Service glues rollout creation to the firmware registry, the device
// selector and the orchestrator.
type Service struct {
	Repo     Repository
	Firmware *firmware.Service
	Selector DeviceSelector
	Orch     *Orchestrator
	Notifier Notifier

	DefaultFailureRateThreshold float64
	DefaultAutoRollback         bool
}

// Create validates the request, snapshots the target set and plans the
// waves. The rollout is stored as planned; execution starts separately.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Rollout, error) {
	artifact, err := s.Firmware.Get(req.ArtifactID)
	if err != nil {
		return nil, err
	}

	strat, err := ParseStrategy(req.Strategy, req.Params)
	if err != nil {
		return nil, err
	}

	targets, err := s.resolveTargets(ctx, req)
	if err != nil {
		return nil, err
	}

	waves, err := PlanWaves(artifact, strat, targets, req.ConcurrencyLimit, req.OverrideApprovalGate)
	if err != nil {
		return nil, err
	}

	threshold := req.FailureRateThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = s.DefaultFailureRateThreshold
	}
	autoRollback := s.DefaultAutoRollback
	if req.AutoRollback != nil {
		autoRollback = *req.AutoRollback
	}

	now := time.Now().UTC()
	r := &Rollout{
		ID:                   uuid.NewString(),
		ArtifactID:           artifact.ID,
		DeviceType:           artifact.DeviceType,
		FirmwareVersion:      artifact.Version,
		FirmwareURL:          s.Firmware.DownloadURL(artifact.DeviceType, artifact.Version),
		Checksum:             artifact.SHA256,
		Strategy:             strat.Name(),
		Params:               req.Params,
		Targets:              targets,
		Waves:                waves,
		ConcurrencyLimit:     req.ConcurrencyLimit,
		FailureRateThreshold: threshold,
		AutoRollback:         autoRollback,
		Status:               StatusPlanned,
		CreatedBy:            req.CreatedBy,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.Repo.CreateRollout(r); err != nil {
		return nil, err
	}

	log.Info().
		Str("rollout_id", r.ID).
		Str("artifact_id", artifact.ID).
		Str("version", artifact.Version).
		Str("strategy", r.Strategy).
		Int("targets", len(targets)).
		Int("waves", len(waves)).
		Int("concurrency_limit", r.ConcurrencyLimit).
		Msg("Rollout created")

	if s.Notifier != nil {
		s.Notifier.Dispatch("rollout.created", map[string]any{
			"rolloutId": r.ID,
			"version":   r.FirmwareVersion,
			"strategy":  r.Strategy,
			"targets":   len(targets),
		})
	}
	return r, nil
}

// resolveTargets snapshots the device set once. Later registry changes
// never affect an in-flight rollout.
func (s *Service) resolveTargets(ctx context.Context, req CreateRequest) ([]string, error) {
	var raw []string
	switch {
	case len(req.Devices) > 0:
		raw = req.Devices
	case len(req.Filter) > 0:
		resolved, err := s.Selector.Resolve(ctx, req.Filter)
		if err != nil {
			return nil, fmt.Errorf("resolving device filter: %w", err)
		}
		raw = resolved
	default:
		return nil, fmt.Errorf("%w: either devices or filter is required", ErrValidation)
	}

	seen := make(map[string]bool, len(raw))
	targets := make([]string, 0, len(raw))
	for _, d := range raw {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		targets = append(targets, d)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: empty target set", ErrValidation)
	}
	return targets, nil
}

// Start, Pause, Resume, Cancel and Status delegate to the orchestrator.

func (s *Service) Start(id string) error  { return s.Orch.Start(id) }
func (s *Service) Pause(id string) error  { return s.Orch.Pause(id) }
func (s *Service) Resume(id string) error { return s.Orch.Resume(id) }
func (s *Service) Cancel(id string) error { return s.Orch.Cancel(id) }

func (s *Service) Status(id string) (StatusReport, error) { return s.Orch.Status(id) }

// List returns summaries for every rollout, newest first.
func (s *Service) List() ([]StatusReport, error) {
	rollouts, err := s.Repo.ListRollouts()
	if err != nil {
		return nil, err
	}
	out := make([]StatusReport, 0, len(rollouts))
	for _, r := range rollouts {
		report, err := s.Orch.Status(r.ID)
		if err != nil {
			continue
		}
		out = append(out, report)
	}
	return out, nil
}
