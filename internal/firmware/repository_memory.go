package firmware

import (
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository used by tests and ephemeral setups.
type MemoryRepo struct {
	mu        sync.RWMutex
	artifacts map[string]Artifact
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{artifacts: make(map[string]Artifact)}
}

func (r *MemoryRepo) Insert(a Artifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts[a.ID] = a
	return nil
}

func (r *MemoryRepo) UpdateStatus(id string, status Status, approvedBy string, approvedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.artifacts[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	if approvedBy != "" {
		a.ApprovedBy = approvedBy
	}
	if approvedAt != nil {
		a.ApprovedAt = approvedAt
	}
	r.artifacts[id] = a
	return nil
}

func (r *MemoryRepo) Get(id string) (Artifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.artifacts[id]
	if !ok {
		return Artifact{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) GetByVersion(deviceType, version string) (Artifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.artifacts {
		if a.DeviceType == deviceType && a.Version == version {
			return a, nil
		}
	}
	return Artifact{}, ErrNotFound
}

func (r *MemoryRepo) List(filter ListFilter) ([]Artifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Artifact
	for _, a := range r.artifacts {
		if filter.DeviceType != "" && a.DeviceType != filter.DeviceType {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
