package rollout

import (
	"sync"
)

// Repository persists rollouts, jobs and wave results. The driver is
// the single writer for any one record; implementations only need to
// serialize storage access, not coordinate ownership.
type Repository interface {
	CreateRollout(*Rollout) error
	UpdateRollout(*Rollout) error
	GetRollout(id string) (*Rollout, error)
	ListRollouts() ([]*Rollout, error)

	SaveJob(*Job) error
	JobsForRollout(rolloutID string) ([]*Job, error)
	// DeviceBusy reports whether the device has a non-terminal job in
	// a rollout other than excludeRolloutID.
	DeviceBusy(deviceID, excludeRolloutID string) (bool, error)

	SaveWaveResult(WaveResult) error
	WaveResults(rolloutID string) ([]WaveResult, error)
}

// MemoryRepo is an in-memory Repository used by tests and ephemeral setups.
type MemoryRepo struct {
	mu       sync.RWMutex
	rollouts map[string]Rollout
	jobs     map[string]Job
	waves    map[string][]WaveResult
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		rollouts: make(map[string]Rollout),
		jobs:     make(map[string]Job),
		waves:    make(map[string][]WaveResult),
	}
}

func (m *MemoryRepo) CreateRollout(r *Rollout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollouts[r.ID] = *r
	return nil
}

func (m *MemoryRepo) UpdateRollout(r *Rollout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rollouts[r.ID]; !ok {
		return ErrNotFound
	}
	m.rollouts[r.ID] = *r
	return nil
}

func (m *MemoryRepo) GetRollout(id string) (*Rollout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rollouts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := r
	return &cp, nil
}

func (m *MemoryRepo) ListRollouts() ([]*Rollout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Rollout, 0, len(m.rollouts))
	for _, r := range m.rollouts {
		cp := r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryRepo) SaveJob(j *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = *j
	return nil
}

func (m *MemoryRepo) JobsForRollout(rolloutID string) ([]*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Job
	for _, j := range m.jobs {
		if j.RolloutID == rolloutID {
			cp := j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryRepo) DeviceBusy(deviceID, excludeRolloutID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, j := range m.jobs {
		if j.DeviceID == deviceID && j.RolloutID != excludeRolloutID && !j.State.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepo) SaveWaveResult(wr WaveResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.waves[wr.RolloutID] {
		if existing.WaveIndex == wr.WaveIndex {
			m.waves[wr.RolloutID][i] = wr
			return nil
		}
	}
	m.waves[wr.RolloutID] = append(m.waves[wr.RolloutID], wr)
	return nil
}

func (m *MemoryRepo) WaveResults(rolloutID string) ([]WaveResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]WaveResult(nil), m.waves[rolloutID]...), nil
}
