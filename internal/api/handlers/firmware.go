package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"fleet-rollout-api/internal/auth"
	"fleet-rollout-api/internal/firmware"
	"fleet-rollout-api/internal/notify"
	"fleet-rollout-api/internal/util"
)

// FirmwareHandler translates HTTP to firmware service calls.
type FirmwareHandler struct {
	Auth     auth.Auth
	Service  *firmware.Service
	Notify   *notify.Service
	MaxBytes int64
}

func (h *FirmwareHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/firmware/")
	parts := filterEmpty(strings.Split(path, "/"))
	if len(parts) == 0 {
		http.Error(w, "missing device type", http.StatusBadRequest)
		return
	}
	t := parts[0]

	// GET /api/firmware/{type}
	if len(parts) == 1 && r.Method == http.MethodGet {
		h.Auth.RequireOperator(func(w http.ResponseWriter, r *http.Request) {
			h.list(w, t)
		})(w, r)
		return
	}

	// GET /api/firmware/{type}/latest
	if len(parts) == 2 && parts[1] == "latest" && r.Method == http.MethodGet {
		h.Auth.RequireOperator(func(w http.ResponseWriter, r *http.Request) {
			h.latest(w, t)
		})(w, r)
		return
	}

	// /api/firmware/{type}/{version}
	if len(parts) == 2 {
		v := parts[1]
		switch r.Method {
		case http.MethodPost:
			h.Auth.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
				h.upload(w, r, t, v)
			})(w, r)
		case http.MethodGet:
			h.Auth.RequireOperator(func(w http.ResponseWriter, r *http.Request) {
				h.download(w, t, v)
			})(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	http.Error(w, "invalid firmware route", http.StatusNotFound)
}

// upload godoc
// @Summary      Upload firmware
// @Description  Upload a new firmware binary for a device type and version; the artifact starts in development status
// @Tags         firmware
// @Accept       multipart/form-data
// @Produce      json
// @Param        type         path      string  true   "Device type (e.g., esp32-main)"
// @Param        version      path      string  true   "Semantic version (e.g., 1.2.3)"
// @Param        file         formData  file    true   "Firmware binary file"
// @Param        sha256       formData  string  false  "Declared SHA256; upload fails on mismatch"
// @Param        description  formData  string  false  "Free-form description"
// @Success      200          {object}  firmware.ArtifactDTO
// @Failure      400          {string}  string  "Invalid multipart, bad version or checksum mismatch"
// @Failure      401          {string}  string  "Unauthorized"
// @Failure      500          {string}  string  "Save failed"
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /firmware/{type}/{version} [post]
func (h *FirmwareHandler) upload(w http.ResponseWriter, r *http.Request, t, v string) {
	maxN := h.MaxBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxN)

	if err := r.ParseMultipartForm(maxN); err != nil {
		http.Error(w, "invalid multipart", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer func(file multipart.File) {
		_ = file.Close()
	}(file)

	rec, err := h.Service.Upload(firmware.UploadRequest{
		DeviceType:     t,
		Version:        v,
		Filename:       header.Filename,
		Description:    r.FormValue("description"),
		CreatedBy:      h.Auth.Identity(r),
		DeclaredSHA256: r.FormValue("sha256"),
	}, file)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	dto := rec.ToDTO(h.Service.DownloadURL(t, v))

	if h.Notify != nil {
		h.Notify.Dispatch("firmware.uploaded", dto)
	}

	util.WriteJSON(w, dto)
}

// download godoc
// @Summary      Download firmware
// @Description  Download the firmware binary for a specific device type and version
// @Tags         firmware
// @Produce      octet-stream
// @Param        type     path      string  true  "Device type (e.g., esp32-main)"
// @Param        version  path      string  true  "Semantic version (e.g., 1.2.3)"
// @Success      200      {file}    binary  "Firmware binary file"
// @Header       200      {string}  X-Firmware-Sha256   "SHA256 checksum of the firmware"
// @Header       200      {string}  X-Firmware-Version  "Firmware version"
// @Failure      404      {string}  string  "Firmware not found"
// @Failure      401      {string}  string  "Unauthorized"
// @Security     OperatorKeyAuth
// @Security     BearerAuth
// @Router       /firmware/{type}/{version} [get]
func (h *FirmwareHandler) download(w http.ResponseWriter, t, v string) {
	rec, err := h.Service.Repo.GetByVersion(t, v)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	path := h.Service.DownloadPath(t, v)
	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "missing binary", http.StatusNotFound)
		return
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(rec.SizeBytes, 10))
	w.Header().Set("X-Firmware-Sha256", rec.SHA256)
	w.Header().Set("X-Firmware-Version", rec.Version)

	_, _ = io.Copy(w, f)
}

// list godoc
// @Summary      List firmware versions
// @Description  Get all firmware artifacts for a device type, sorted by semantic version (newest first)
// @Tags         firmware
// @Produce      json
// @Param        type    path      string  true   "Device type (e.g., esp32-main)"
// @Param        status  query     string  false  "Filter by approval status"
// @Success      200     {array}   firmware.ArtifactDTO
// @Failure      401     {string}  string  "Unauthorized"
// @Failure      500     {string}  string  "Database error"
// @Security     OperatorKeyAuth
// @Security     BearerAuth
// @Router       /firmware/{type} [get]
func (h *FirmwareHandler) list(w http.ResponseWriter, t string) {
	arts, err := h.Service.List(firmware.ListFilter{DeviceType: t})
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	out := make([]firmware.ArtifactDTO, 0, len(arts))
	for _, a := range arts {
		out = append(out, a.ToDTO(h.Service.DownloadURL(a.DeviceType, a.Version)))
	}
	util.WriteJSON(w, out)
}

// latest godoc
// @Summary      Get latest stable firmware
// @Description  Get the newest stable firmware artifact for a device type
// @Tags         firmware
// @Produce      json
// @Param        type  path      string  true  "Device type (e.g., esp32-main)"
// @Success      200   {object}  firmware.ArtifactDTO
// @Failure      404   {string}  string  "No stable firmware found"
// @Failure      401   {string}  string  "Unauthorized"
// @Security     OperatorKeyAuth
// @Security     BearerAuth
// @Router       /firmware/{type}/latest [get]
func (h *FirmwareHandler) latest(w http.ResponseWriter, t string) {
	arts, err := h.Service.List(firmware.ListFilter{DeviceType: t, Status: firmware.StatusStable})
	if err != nil || len(arts) == 0 {
		http.Error(w, "no stable firmware", http.StatusNotFound)
		return
	}

	a := arts[0]
	util.WriteJSON(w, a.ToDTO(h.Service.DownloadURL(a.DeviceType, a.Version)))
}

func filterEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
