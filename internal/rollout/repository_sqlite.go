package rollout

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

// SQLiteRepo implements Repository over SQLite. Target and wave
// snapshots are stored as JSON columns; they are written once at
// creation and read back whole, so relational decomposition buys
// nothing here.
type SQLiteRepo struct {
	DB *sql.DB
}

func (r *SQLiteRepo) CreateRollout(ro *Rollout) error {
	targets, err := json.Marshal(ro.Targets)
	if err != nil {
		return err
	}
	waves, err := json.Marshal(ro.Waves)
	if err != nil {
		return err
	}
	params, err := json.Marshal(ro.Params)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(`
INSERT INTO rollouts(id, firmware_artifact_id, device_type, firmware_version, firmware_url, checksum,
  strategy, strategy_params, targets, waves,
  concurrency_limit, failure_rate_threshold, auto_rollback, status, wave_index,
  succeeded, failed, skipped, created_by, created_at, updated_at)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
`, ro.ID, ro.ArtifactID, ro.DeviceType, ro.FirmwareVersion, ro.FirmwareURL, ro.Checksum,
		ro.Strategy, string(params), string(targets), string(waves),
		ro.ConcurrencyLimit, ro.FailureRateThreshold, boolInt(ro.AutoRollback), string(ro.Status), ro.WaveIndex,
		ro.Counters.Succeeded, ro.Counters.Failed, ro.Counters.Skipped,
		ro.CreatedBy, ro.CreatedAt.Format(time.RFC3339), ro.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepo) UpdateRollout(ro *Rollout) error {
	res, err := r.DB.Exec(`
UPDATE rollouts SET status=?, wave_index=?, succeeded=?, failed=?, skipped=?, updated_at=?
WHERE id=?
`, string(ro.Status), ro.WaveIndex, ro.Counters.Succeeded, ro.Counters.Failed, ro.Counters.Skipped,
		ro.UpdatedAt.Format(time.RFC3339), ro.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const rolloutColumns = `id, firmware_artifact_id, device_type, firmware_version, firmware_url, checksum,
  strategy, strategy_params, targets, waves,
  concurrency_limit, failure_rate_threshold, auto_rollback, status, wave_index,
  succeeded, failed, skipped, created_by, created_at, updated_at`

func (r *SQLiteRepo) GetRollout(id string) (*Rollout, error) {
	row := r.DB.QueryRow(`SELECT `+rolloutColumns+` FROM rollouts WHERE id=?`, id)
	ro, err := scanRollout(row)
	if err == sql.ErrNoRows {
		log.Debug().Str("rollout_id", id).Msg("Rollout not found in database")
		return nil, ErrNotFound
	}
	return ro, err
}

func (r *SQLiteRepo) ListRollouts() ([]*Rollout, error) {
	rows, err := r.DB.Query(`SELECT ` + rolloutColumns + ` FROM rollouts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var out []*Rollout
	for rows.Next() {
		ro, err := scanRollout(rows)
		if err != nil {
			continue
		}
		out = append(out, ro)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) SaveJob(j *Job) error {
	var started, finished any
	if j.StartedAt != nil {
		started = j.StartedAt.Format(time.RFC3339)
	}
	if j.FinishedAt != nil {
		finished = j.FinishedAt.Format(time.RFC3339)
	}
	_, err := r.DB.Exec(`
INSERT INTO device_update_jobs(id, rollout_id, device_id, wave_index, state, attempt_count, last_error_kind, started_at, finished_at)
VALUES(?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
  state=excluded.state,
  attempt_count=excluded.attempt_count,
  last_error_kind=excluded.last_error_kind,
  started_at=excluded.started_at,
  finished_at=excluded.finished_at
`, j.ID, j.RolloutID, j.DeviceID, j.WaveIndex, string(j.State), j.AttemptCount, string(j.LastErrorKind), started, finished)
	return err
}

func (r *SQLiteRepo) JobsForRollout(rolloutID string) ([]*Job, error) {
	rows, err := r.DB.Query(`
SELECT id, rollout_id, device_id, wave_index, state, attempt_count, last_error_kind, started_at, finished_at
FROM device_update_jobs WHERE rollout_id=? ORDER BY wave_index, device_id
`, rolloutID)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var out []*Job
	for rows.Next() {
		var j Job
		var state, kind string
		var started, finished sql.NullString
		if err := rows.Scan(&j.ID, &j.RolloutID, &j.DeviceID, &j.WaveIndex, &state, &j.AttemptCount, &kind, &started, &finished); err != nil {
			continue
		}
		j.State = JobState(state)
		j.LastErrorKind = ErrorKind(kind)
		if started.Valid {
			if t, err := time.Parse(time.RFC3339, started.String); err == nil {
				j.StartedAt = &t
			}
		}
		if finished.Valid {
			if t, err := time.Parse(time.RFC3339, finished.String); err == nil {
				j.FinishedAt = &t
			}
		}
		out = append(out, &j)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) DeviceBusy(deviceID, excludeRolloutID string) (bool, error) {
	var n int
	err := r.DB.QueryRow(`
SELECT COUNT(1) FROM device_update_jobs
WHERE device_id=? AND rollout_id<>? AND state NOT IN ('succeeded','failed','rolled_back','skipped')
`, deviceID, excludeRolloutID).Scan(&n)
	return n > 0, err
}

func (r *SQLiteRepo) SaveWaveResult(wr WaveResult) error {
	_, err := r.DB.Exec(`
INSERT INTO wave_results(rollout_id, wave_index, total, succeeded, failed, skipped, failure_rate, gate_decision, completed_at)
VALUES(?,?,?,?,?,?,?,?,?)
ON CONFLICT(rollout_id, wave_index) DO UPDATE SET
  total=excluded.total,
  succeeded=excluded.succeeded,
  failed=excluded.failed,
  skipped=excluded.skipped,
  failure_rate=excluded.failure_rate,
  gate_decision=excluded.gate_decision,
  completed_at=excluded.completed_at
`, wr.RolloutID, wr.WaveIndex, wr.Total, wr.Succeeded, wr.Failed, wr.Skipped, wr.FailureRate,
		string(wr.GateDecision), wr.CompletedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepo) WaveResults(rolloutID string) ([]WaveResult, error) {
	rows, err := r.DB.Query(`
SELECT rollout_id, wave_index, total, succeeded, failed, skipped, failure_rate, gate_decision, completed_at
FROM wave_results WHERE rollout_id=? ORDER BY wave_index
`, rolloutID)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var out []WaveResult
	for rows.Next() {
		var wr WaveResult
		var decision, completed string
		if err := rows.Scan(&wr.RolloutID, &wr.WaveIndex, &wr.Total, &wr.Succeeded, &wr.Failed, &wr.Skipped,
			&wr.FailureRate, &decision, &completed); err != nil {
			continue
		}
		wr.GateDecision = GateDecision(decision)
		wr.CompletedAt, _ = time.Parse(time.RFC3339, completed)
		out = append(out, wr)
	}
	return out, rows.Err()
}

func scanRollout(row interface{ Scan(...any) error }) (*Rollout, error) {
	var ro Rollout
	var params, targets, waves, status, created, updated string
	var autoRollback int
	err := row.Scan(&ro.ID, &ro.ArtifactID, &ro.DeviceType, &ro.FirmwareVersion, &ro.FirmwareURL, &ro.Checksum,
		&ro.Strategy, &params, &targets, &waves,
		&ro.ConcurrencyLimit, &ro.FailureRateThreshold, &autoRollback, &status, &ro.WaveIndex,
		&ro.Counters.Succeeded, &ro.Counters.Failed, &ro.Counters.Skipped,
		&ro.CreatedBy, &created, &updated)
	if err != nil {
		return nil, err
	}
	ro.Status = Status(status)
	ro.AutoRollback = autoRollback != 0
	if err := json.Unmarshal([]byte(params), &ro.Params); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(targets), &ro.Targets); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(waves), &ro.Waves); err != nil {
		return nil, err
	}
	ro.CreatedAt, _ = time.Parse(time.RFC3339, created)
	ro.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &ro, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
