package firmware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrChecksumMismatch means the caller-declared checksum disagrees
	// with the one computed from the uploaded payload.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrInvalidStateTransition means the requested status change is not
	// allowed by the approval state machine.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrNotFound means no artifact matches the given id.
	ErrNotFound = errors.New("artifact not found")
)

// Repository persists artifact metadata.
type Repository interface {
	Insert(Artifact) error
	UpdateStatus(id string, status Status, approvedBy string, approvedAt *time.Time) error
	Get(id string) (Artifact, error)
	GetByVersion(deviceType, version string) (Artifact, error)
	List(ListFilter) ([]Artifact, error)
}

// Service holds artifact business logic only.
type Service struct {
	Repo       Repository
	Storage    Storage
	PublicBase string
}

// Upload reads the binary, computes SHA256, verifies it against the
// declared checksum if one was given, writes the file atomically and
// records the artifact with status development.
func (s *Service) Upload(req UploadRequest, r io.Reader) (Artifact, error) {
	if _, err := ParseVersion(req.Version); err != nil {
		return Artifact{}, err
	}

	log.Info().
		Str("device_type", req.DeviceType).
		Str("version", req.Version).
		Str("filename", req.Filename).
		Msg("Starting firmware upload")

	data, err := io.ReadAll(r)
	if err != nil {
		log.Error().
			Err(err).
			Str("device_type", req.DeviceType).
			Str("version", req.Version).
			Msg("Failed to read firmware data")
		return Artifact{}, err
	}

	sum := sha256.Sum256(data)
	shaHex := hex.EncodeToString(sum[:])

	if declared := strings.ToLower(strings.TrimSpace(req.DeclaredSHA256)); declared != "" && declared != shaHex {
		log.Warn().
			Str("device_type", req.DeviceType).
			Str("version", req.Version).
			Str("declared", declared).
			Str("computed", shaHex).
			Msg("Upload rejected: checksum mismatch")
		return Artifact{}, fmt.Errorf("%w: declared %s, computed %s", ErrChecksumMismatch, declared, shaHex)
	}

	dir := s.Storage.Dir(req.DeviceType, req.Version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error().
			Err(err).
			Str("dir", dir).
			Msg("Failed to create storage directory")
		return Artifact{}, err
	}

	dest := s.Storage.FilePath(req.DeviceType, req.Version)
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Error().
			Err(err).
			Str("tmp_file", tmp).
			Msg("Failed to write temporary firmware file")
		return Artifact{}, err
	}
	if err := os.Rename(tmp, dest); err != nil {
		log.Error().
			Err(err).
			Str("tmp_file", tmp).
			Str("dest_file", dest).
			Msg("Failed to rename firmware file (atomic write)")
		return Artifact{}, err
	}

	rec := Artifact{
		ID:          uuid.NewString(),
		DeviceType:  req.DeviceType,
		Version:     req.Version,
		Filename:    req.Filename,
		SizeBytes:   int64(len(data)),
		SHA256:      shaHex,
		Status:      StatusDevelopment,
		Description: req.Description,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.Repo.Insert(rec); err != nil {
		log.Error().
			Err(err).
			Str("device_type", req.DeviceType).
			Str("version", req.Version).
			Msg("Failed to insert firmware metadata")
		return Artifact{}, err
	}

	log.Info().
		Str("artifact_id", rec.ID).
		Str("device_type", rec.DeviceType).
		Str("version", rec.Version).
		Int64("size_bytes", rec.SizeBytes).
		Str("sha256", rec.SHA256).
		Msg("Firmware uploaded successfully")

	return rec, nil
}

// Promote moves an artifact from development to testing.
func (s *Service) Promote(id string) (Artifact, error) {
	return s.transition(id, StatusTesting, "")
}

// Approve marks a development or testing artifact stable and records
// the approver identity.
func (s *Service) Approve(id, approvedBy string) (Artifact, error) {
	return s.transition(id, StatusStable, approvedBy)
}

// Deprecate retires an artifact. Deprecated is terminal; the planner
// rejects deprecated artifacts for new rollouts.
func (s *Service) Deprecate(id string) (Artifact, error) {
	return s.transition(id, StatusDeprecated, "")
}

func (s *Service) transition(id string, next Status, approvedBy string) (Artifact, error) {
	art, err := s.Repo.Get(id)
	if err != nil {
		return Artifact{}, err
	}
	if !art.Status.CanTransition(next) {
		log.Warn().
			Str("artifact_id", id).
			Str("from", string(art.Status)).
			Str("to", string(next)).
			Msg("Rejected artifact status transition")
		return Artifact{}, fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, art.Status, next)
	}

	var approvedAt *time.Time
	if next == StatusStable {
		now := time.Now().UTC()
		approvedAt = &now
	}
	if err := s.Repo.UpdateStatus(id, next, approvedBy, approvedAt); err != nil {
		return Artifact{}, err
	}

	art.Status = next
	if approvedBy != "" {
		art.ApprovedBy = approvedBy
	}
	art.ApprovedAt = approvedAt

	log.Info().
		Str("artifact_id", id).
		Str("device_type", art.DeviceType).
		Str("version", art.Version).
		Str("status", string(next)).
		Str("approved_by", approvedBy).
		Msg("Artifact status changed")

	return art, nil
}

// Get returns a single artifact by id.
func (s *Service) Get(id string) (Artifact, error) {
	return s.Repo.Get(id)
}

// List returns artifacts matching the filter, newest version first.
func (s *Service) List(filter ListFilter) ([]Artifact, error) {
	arts, err := s.Repo.List(filter)
	if err != nil {
		return nil, err
	}
	sort.Slice(arts, func(i, j int) bool {
		vi, ei := ParseVersion(arts[i].Version)
		vj, ej := ParseVersion(arts[j].Version)
		if ei != nil || ej != nil {
			return arts[i].Version > arts[j].Version
		}
		return vj.Less(vi)
	})
	return arts, nil
}

// PreviousStable returns the newest stable artifact for the device type
// with a version older than the given one. Used to pick the revert
// target during rollback.
func (s *Service) PreviousStable(deviceType, version string) (Artifact, error) {
	cur, err := ParseVersion(version)
	if err != nil {
		return Artifact{}, err
	}
	arts, err := s.Repo.List(ListFilter{DeviceType: deviceType, Status: StatusStable})
	if err != nil {
		return Artifact{}, err
	}
	var best *Artifact
	var bestV Version
	for i := range arts {
		v, err := ParseVersion(arts[i].Version)
		if err != nil || !v.Less(cur) {
			continue
		}
		if best == nil || bestV.Less(v) {
			best = &arts[i]
			bestV = v
		}
	}
	if best == nil {
		return Artifact{}, fmt.Errorf("%w: no stable version below %s for %s", ErrNotFound, version, deviceType)
	}
	return *best, nil
}

func (s *Service) DownloadPath(deviceType, version string) string {
	return s.Storage.FilePath(deviceType, version)
}

func (s *Service) DownloadURL(deviceType, version string) string {
	if s.PublicBase == "" {
		return ""
	}
	base := strings.TrimRight(s.PublicBase, "/")
	return base + "/api/firmware/" + deviceType + "/" + version
}
