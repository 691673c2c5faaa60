package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"netguard/internal/registry"
	"netguard/internal/snapshot"
	"netguard/internal/version"
)

const maxLogLimit = 1000

type Handler struct {
	store     registry.Store
	snapshots *snapshot.Store
	logger    zerolog.Logger

	now func() time.Time
}

func New(store registry.Store, snapshots *snapshot.Store, logger zerolog.Logger) *Handler {
	return &Handler{
		store:     store,
		snapshots: snapshots,
		logger:    logger.With().Str("component", "api").Logger(),
		now:       time.Now,
	}
}

// Index identifies the server.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "online",
		"message": "NetGuard API Server",
		"version": version.GetVersion(),
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ListDevices returns every device in registry order.
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.store.ListDevices(r.Context())
	if err != nil {
		h.fail(w, err, "list devices")
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// createDeviceRequest mirrors registry.Device with every optional field
// nullable so omitted fields can be defaulted.
type createDeviceRequest struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	IP          string           `json:"ip"`
	Type        string           `json:"type"`
	Status      *registry.Status `json:"status"`
	Latency     *int             `json:"latency"`
	LastChecked *int64           `json:"lastChecked"`
	IsMonitored *bool            `json:"isMonitored"`
	Uptime      *float64         `json:"uptime"`
}

func (req createDeviceRequest) device(now time.Time) registry.Device {
	d := registry.Device{
		ID:          strings.TrimSpace(req.ID),
		Name:        strings.TrimSpace(req.Name),
		IP:          strings.TrimSpace(req.IP),
		Type:        strings.TrimSpace(req.Type),
		Status:      registry.StatusOffline,
		LastChecked: now.UnixMilli(),
		IsMonitored: true,
	}
	if d.Type == "" {
		d.Type = "server"
	}
	if req.Status != nil && req.Status.Valid() {
		d.Status = *req.Status
	}
	if req.Latency != nil && *req.Latency >= 0 {
		d.Latency = *req.Latency
	}
	if req.LastChecked != nil {
		d.LastChecked = *req.LastChecked
	}
	if req.IsMonitored != nil {
		d.IsMonitored = *req.IsMonitored
	}
	if req.Uptime != nil {
		d.Uptime = *req.Uptime
	}
	return d
}

// CreateDevice registers a device under the caller-supplied id.
func (h *Handler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	d := req.device(h.now())
	if d.ID == "" || d.Name == "" || d.IP == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if strings.HasPrefix(d.IP, "-") {
		writeError(w, http.StatusBadRequest, "Invalid ip")
		return
	}

	if err := h.store.CreateDevice(r.Context(), d); err != nil {
		h.fail(w, err, "create device")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Device added successfully"})
}

func (h *Handler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteDevice(r.Context(), id); err != nil {
		h.fail(w, err, "delete device")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Device deleted successfully"})
}

// ToggleMonitoring flips the monitoring flag of a device.
func (h *Handler) ToggleMonitoring(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	monitored, err := h.store.ToggleMonitoring(r.Context(), id)
	if err != nil {
		h.fail(w, err, "toggle monitoring")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Monitoring toggled successfully",
		"isMonitored": monitored,
	})
}

// ListAlerts returns every alert, newest first.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.store.ListAlerts(r.Context())
	if err != nil {
		h.fail(w, err, "list alerts")
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// ListLogs returns the newest fault log entries. ?limit= defaults to 100.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"))

	logs, err := h.store.ListFaultLogs(r.Context(), limit)
	if err != nil {
		h.fail(w, err, "list fault logs")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func parseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return registry.DefaultLogLimit
	}
	if n > maxLogLimit {
		return maxLogLimit
	}
	return n
}

// Status returns the summary of the last completed scan cycle.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	cyc, ok := h.snapshots.Get()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"status": "pending", "cycle": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "running", "cycle": cyc})
}

// fail maps registry errors onto status codes.
func (h *Handler) fail(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, "Device not found")
	case errors.Is(err, registry.ErrDuplicate):
		writeError(w, http.StatusConflict, "Device already exists")
	default:
		h.logger.Error().Err(err).Str("op", op).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
