package firmware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"gotest.tools/assert"
)

func testService(t *testing.T) *Service {
	t.Helper()
	return &Service{
		Repo:       NewMemoryRepo(),
		Storage:    Storage{BaseDir: t.TempDir()},
		PublicBase: "https://fw.example.com",
	}
}

func upload(t *testing.T, s *Service, deviceType, version, payload string) Artifact {
	t.Helper()
	rec, err := s.Upload(UploadRequest{
		DeviceType: deviceType,
		Version:    version,
		Filename:   "firmware.bin",
		CreatedBy:  "ci-bot",
	}, strings.NewReader(payload))
	assert.NilError(t, err)
	return rec
}

func TestUploadComputesChecksum(t *testing.T) {
	s := testService(t)
	payload := "firmware image bytes"

	rec := upload(t, s, "esp32-main", "1.2.3", payload)

	sum := sha256.Sum256([]byte(payload))
	assert.Equal(t, rec.SHA256, hex.EncodeToString(sum[:]))
	assert.Equal(t, rec.SizeBytes, int64(len(payload)))
	assert.Equal(t, rec.Status, StatusDevelopment)
	assert.Check(t, rec.ID != "")
	assert.Equal(t, rec.CreatedBy, "ci-bot")
}

func TestUploadDeclaredChecksum(t *testing.T) {
	s := testService(t)
	payload := "image"
	sum := sha256.Sum256([]byte(payload))
	good := hex.EncodeToString(sum[:])

	_, err := s.Upload(UploadRequest{
		DeviceType:     "esp32-main",
		Version:        "1.0.0",
		Filename:       "firmware.bin",
		DeclaredSHA256: strings.ToUpper(good),
	}, strings.NewReader(payload))
	assert.NilError(t, err)

	_, err = s.Upload(UploadRequest{
		DeviceType:     "esp32-main",
		Version:        "1.0.1",
		Filename:       "firmware.bin",
		DeclaredSHA256: strings.Repeat("ab", 32),
	}, strings.NewReader(payload))
	assert.Check(t, errors.Is(err, ErrChecksumMismatch))
}

func TestUploadRejectsBadVersion(t *testing.T) {
	s := testService(t)
	_, err := s.Upload(UploadRequest{
		DeviceType: "esp32-main",
		Version:    "not-a-version",
		Filename:   "firmware.bin",
	}, strings.NewReader("x"))
	assert.Check(t, err != nil)
}

func TestApprovalLifecycle(t *testing.T) {
	s := testService(t)
	rec := upload(t, s, "esp32-main", "1.2.3", "image")

	art, err := s.Promote(rec.ID)
	assert.NilError(t, err)
	assert.Equal(t, art.Status, StatusTesting)

	art, err = s.Approve(rec.ID, "alice")
	assert.NilError(t, err)
	assert.Equal(t, art.Status, StatusStable)
	assert.Equal(t, art.ApprovedBy, "alice")
	assert.Check(t, art.ApprovedAt != nil)

	// stable never goes back to testing
	_, err = s.Promote(rec.ID)
	assert.Check(t, errors.Is(err, ErrInvalidStateTransition))

	art, err = s.Deprecate(rec.ID)
	assert.NilError(t, err)
	assert.Equal(t, art.Status, StatusDeprecated)

	// deprecated is terminal
	_, err = s.Approve(rec.ID, "alice")
	assert.Check(t, errors.Is(err, ErrInvalidStateTransition))
}

func TestApproveSkippingTesting(t *testing.T) {
	s := testService(t)
	rec := upload(t, s, "esp32-main", "1.2.3", "image")

	art, err := s.Approve(rec.ID, "bob")
	assert.NilError(t, err)
	assert.Equal(t, art.Status, StatusStable)
}

func TestListNewestFirst(t *testing.T) {
	s := testService(t)
	upload(t, s, "esp32-main", "1.2.3", "a")
	upload(t, s, "esp32-main", "1.10.0", "b")
	upload(t, s, "esp32-main", "0.9.0", "c")
	upload(t, s, "relay-hub", "9.0.0", "d")

	arts, err := s.List(ListFilter{DeviceType: "esp32-main"})
	assert.NilError(t, err)
	assert.Equal(t, len(arts), 3)
	assert.Equal(t, arts[0].Version, "1.10.0")
	assert.Equal(t, arts[1].Version, "1.2.3")
	assert.Equal(t, arts[2].Version, "0.9.0")
}

func TestPreviousStable(t *testing.T) {
	s := testService(t)
	old := upload(t, s, "esp32-main", "1.0.0", "a")
	mid := upload(t, s, "esp32-main", "1.1.0", "b")
	upload(t, s, "esp32-main", "1.2.0", "c")

	_, err := s.Approve(old.ID, "alice")
	assert.NilError(t, err)
	_, err = s.Approve(mid.ID, "alice")
	assert.NilError(t, err)

	prev, err := s.PreviousStable("esp32-main", "1.2.0")
	assert.NilError(t, err)
	assert.Equal(t, prev.Version, "1.1.0")

	// 1.2.0 never went stable, so below 1.0.0 there is nothing
	_, err = s.PreviousStable("esp32-main", "1.0.0")
	assert.Check(t, errors.Is(err, ErrNotFound))
}

func TestDownloadURL(t *testing.T) {
	s := testService(t)
	assert.Equal(t, s.DownloadURL("esp32-main", "1.2.3"),
		"https://fw.example.com/api/firmware/esp32-main/1.2.3")

	s.PublicBase = ""
	assert.Equal(t, s.DownloadURL("esp32-main", "1.2.3"), "")
}
