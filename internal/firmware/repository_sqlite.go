package firmware

import (
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"
)

// SQLiteRepo implements Repository over SQLite.
type SQLiteRepo struct {
	DB *sql.DB
}

func (r *SQLiteRepo) Insert(a Artifact) error {
	_, err := r.DB.Exec(`
INSERT INTO firmware_artifacts(id, device_type, version, filename, size_bytes, sha256, status, description, created_by, created_at)
VALUES(?,?,?,?,?,?,?,?,?,?)
`, a.ID, a.DeviceType, a.Version, a.Filename, a.SizeBytes, a.SHA256, string(a.Status), a.Description, a.CreatedBy, a.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepo) UpdateStatus(id string, status Status, approvedBy string, approvedAt *time.Time) error {
	var approved any
	if approvedAt != nil {
		approved = approvedAt.Format(time.RFC3339)
	}
	res, err := r.DB.Exec(`
UPDATE firmware_artifacts
SET status=?, approved_by=CASE WHEN ?='' THEN approved_by ELSE ? END, approved_at=COALESCE(?, approved_at)
WHERE id=?
`, string(status), approvedBy, approvedBy, approved, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const artifactColumns = `id, device_type, version, filename, size_bytes, sha256, status, description, created_by, approved_by, approved_at, created_at`

func (r *SQLiteRepo) Get(id string) (Artifact, error) {
	row := r.DB.QueryRow(`SELECT `+artifactColumns+` FROM firmware_artifacts WHERE id=?`, id)
	a, err := scanArtifact(row)
	if err == sql.ErrNoRows {
		log.Debug().Str("artifact_id", id).Msg("Artifact not found in database")
		return a, ErrNotFound
	}
	return a, err
}

func (r *SQLiteRepo) GetByVersion(deviceType, version string) (Artifact, error) {
	row := r.DB.QueryRow(`SELECT `+artifactColumns+` FROM firmware_artifacts WHERE device_type=? AND version=?`, deviceType, version)
	a, err := scanArtifact(row)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

func (r *SQLiteRepo) List(filter ListFilter) ([]Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM firmware_artifacts WHERE 1=1`
	var args []any
	if filter.DeviceType != "" {
		query += ` AND device_type=?`
		args = append(args, filter.DeviceType)
	}
	if filter.Status != "" {
		query += ` AND status=?`
		args = append(args, string(filter.Status))
	}
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var out []Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (Artifact, error) {
	var a Artifact
	var status, created string
	var approvedAt sql.NullString
	err := row.Scan(&a.ID, &a.DeviceType, &a.Version, &a.Filename, &a.SizeBytes, &a.SHA256,
		&status, &a.Description, &a.CreatedBy, &a.ApprovedBy, &approvedAt, &created)
	if err != nil {
		return a, err
	}
	a.Status = Status(status)
	a.CreatedAt, _ = time.Parse(time.RFC3339, created)
	if approvedAt.Valid {
		if t, err := time.Parse(time.RFC3339, approvedAt.String); err == nil {
			a.ApprovedAt = &t
		}
	}
	return a, nil
}
