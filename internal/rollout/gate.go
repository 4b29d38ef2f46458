package rollout

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Policy controls the promote/halt/rollback decision after a wave.
type Policy struct {
	FailureRateThreshold float64
	AutoRollback         bool
}

// Coordinator decides wave gates and executes rollbacks.
type Coordinator struct {
	Transport Transport
	Tuning    Tuning
}

// Evaluate gates a resolved wave. failed/total above the threshold
// means rollback when automatic rollback is enabled, halt otherwise.
func (c *Coordinator) Evaluate(wr WaveResult, p Policy) GateDecision {
	if wr.Total == 0 || wr.FailureRate <= p.FailureRateThreshold {
		return GatePromote
	}
	log.Warn().
		Str("rollout_id", wr.RolloutID).
		Int("wave", wr.WaveIndex).
		Float64("failure_rate", wr.FailureRate).
		Float64("threshold", p.FailureRateThreshold).
		Bool("auto_rollback", p.AutoRollback).
		Msg("Wave failure rate above threshold")
	if p.AutoRollback {
		return GateRollback
	}
	return GateHalt
}

// Rollback issues a revert command to every succeeded job in the wave
// and marks those jobs rolled back. Devices outside the wave are never
// touched. Revert delivery is retried with the same attempt cap as
// forward flashing; a device that stays unreachable keeps its job in
// succeeded with the failure recorded.
func (c *Coordinator) Rollback(ctx context.Context, rolloutID string, waveIndex int, jobs []*Job, revert RevertCommand, concurrency int, emit func(JobEvent)) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, job := range jobs {
		if job.WaveIndex != waveIndex || job.State != JobSucceeded {
			continue
		}
		job := job
		g.Go(func() error {
			cmd := revert
			cmd.DeviceID = job.DeviceID
			if err := c.deliverRevert(ctx, cmd); err != nil {
				kind := ClassifyError(err)
				job.LastErrorKind = kind
				log.Error().
					Err(err).
					Str("rollout_id", rolloutID).
					Str("device_id", job.DeviceID).
					Str("error_kind", string(kind)).
					Msg("Revert command failed after all attempts")
				return nil
			}
			if ev, err := job.Transition(JobRolledBack, ErrKindNone); err == nil && emit != nil {
				emit(ev)
			}
			log.Info().
				Str("rollout_id", rolloutID).
				Str("device_id", job.DeviceID).
				Str("revert_version", revert.RevertVersion).
				Msg("Device rolled back")
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Coordinator) deliverRevert(ctx context.Context, cmd RevertCommand) error {
	var lastErr error
	for attempt := 1; attempt <= c.Tuning.MaxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, c.Tuning.DispatchTimeout)
		err := c.Transport.SendRevert(sendCtx, cmd)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !ClassifyError(err).Transient() || attempt == c.Tuning.MaxAttempts {
			break
		}
		select {
		case <-time.After(c.Tuning.Backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
