package firmware

import "path/filepath"

// Storage maps artifacts to their on-disk location.
type Storage struct {
	BaseDir string
}

func (s Storage) Dir(deviceType, version string) string {
	return filepath.Join(s.BaseDir, deviceType, version)
}

func (s Storage) FilePath(deviceType, version string) string {
	return filepath.Join(s.Dir(deviceType, version), "firmware.bin")
}
