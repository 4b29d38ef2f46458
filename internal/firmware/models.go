package firmware

import "time"

// Status is the approval state of an artifact. Only the status of an
// artifact ever changes after upload; everything else is immutable.
type Status string

const (
	StatusDevelopment Status = "development"
	StatusTesting     Status = "testing"
	StatusStable      Status = "stable"
	StatusDeprecated  Status = "deprecated"
)

// validTransitions is the approval state machine:
// development -> testing -> stable -> deprecated, plus abandonment
// (development/testing -> deprecated). No transition re-enters a prior state.
var validTransitions = map[Status][]Status{
	StatusDevelopment: {StatusTesting, StatusStable, StatusDeprecated},
	StatusTesting:     {StatusStable, StatusDeprecated},
	StatusStable:      {StatusDeprecated},
	StatusDeprecated:  {},
}

// CanTransition reports whether s may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Artifact is the internal domain model for one firmware binary.
type Artifact struct {
	ID          string
	DeviceType  string
	Version     string
	Filename    string
	SizeBytes   int64
	SHA256      string
	Status      Status
	Description string
	CreatedBy   string
	ApprovedBy  string
	ApprovedAt  *time.Time
	CreatedAt   time.Time
}

// ArtifactDTO is what we expose over HTTP.
type ArtifactDTO struct {
	ID          string     `json:"id" example:"2f9e4a6e-1d53-4f6a-9c7b-8d1a33f0c111" doc:"Artifact ID"`
	DeviceType  string     `json:"deviceType" example:"esp32-main" doc:"Device type identifier"`
	Version     string     `json:"version" example:"1.2.3" doc:"Semantic version"`
	Filename    string     `json:"filename" example:"firmware.bin" doc:"Original filename"`
	SizeBytes   int64      `json:"sizeBytes" example:"524288" doc:"File size in bytes"`
	SHA256      string     `json:"sha256" example:"abc123..." doc:"SHA256 checksum"`
	Status      string     `json:"status" example:"stable" doc:"Approval status"`
	Description string     `json:"description,omitempty" doc:"Free-form description"`
	CreatedBy   string     `json:"createdBy,omitempty" example:"ci-bot" doc:"Uploader identity"`
	ApprovedBy  string     `json:"approvedBy,omitempty" example:"alice" doc:"Approver identity"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty" doc:"Approval timestamp"`
	CreatedAt   time.Time  `json:"createdAt" example:"2024-01-15T10:30:00Z" doc:"Upload timestamp"`
	DownloadURL string     `json:"downloadUrl,omitempty" doc:"Direct download URL"`
}

func (a Artifact) ToDTO(downloadURL string) ArtifactDTO {
	return ArtifactDTO{
		ID:          a.ID,
		DeviceType:  a.DeviceType,
		Version:     a.Version,
		Filename:    a.Filename,
		SizeBytes:   a.SizeBytes,
		SHA256:      a.SHA256,
		Status:      string(a.Status),
		Description: a.Description,
		CreatedBy:   a.CreatedBy,
		ApprovedBy:  a.ApprovedBy,
		ApprovedAt:  a.ApprovedAt,
		CreatedAt:   a.CreatedAt,
		DownloadURL: downloadURL,
	}
}

// UploadRequest carries artifact metadata supplied by the caller.
// DeclaredSHA256 is optional; when set, upload fails on mismatch with
// the checksum computed server-side.
type UploadRequest struct {
	DeviceType     string
	Version        string
	Filename       string
	Description    string
	CreatedBy      string
	DeclaredSHA256 string
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	DeviceType string
	Status     Status
}
