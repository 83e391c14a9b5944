// Package api provides HTTP API handlers for depthlens calibration profiles.
package api

import (
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/depthlens/internal/frame"
	"github.com/ayusman/depthlens/internal/spatial"
	"github.com/ayusman/depthlens/internal/store"
)

// CalibrationHandler handles HTTP requests for calibration profiles.
type CalibrationHandler struct {
	store *store.Store
}

// NewCalibrationHandler creates a new CalibrationHandler with the given store.
func NewCalibrationHandler(s *store.Store) *CalibrationHandler {
	return &CalibrationHandler{store: s}
}

// ServeHTTP routes /api/calibrations and /api/calibrations/{id}.
func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/calibrations")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type correspondence struct {
	Color [2]int `json:"color"`
	Depth [2]int `json:"depth"`
}

// createCalibrationRequest carries either an explicit offset or the
// correspondences to estimate it from.
type createCalibrationRequest struct {
	Name     string           `json:"name"`
	Geometry frame.Geometry   `json:"geometry"`
	OffsetX  *int             `json:"offset_x"`
	OffsetY  *int             `json:"offset_y"`
	Pairs    []correspondence `json:"pairs"`
}

type calibrationResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Geometry  frame.Geometry `json:"geometry"`
	OffsetX   int            `json:"offset_x"`
	OffsetY   int            `json:"offset_y"`
	Samples   int            `json:"samples"`
	CreatedAt string         `json:"created_at"`
}

type listCalibrationsResponse struct {
	Calibrations []calibrationResponse `json:"calibrations"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(p *store.Profile) calibrationResponse {
	return calibrationResponse{
		ID:        p.ID,
		Name:      p.Name,
		Geometry:  p.Geometry,
		OffsetX:   p.Offset.X,
		OffsetY:   p.Offset.Y,
		Samples:   p.Samples,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/calibrations.
func (h *CalibrationHandler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calibrations")
		return
	}

	response := listCalibrationsResponse{
		Calibrations: make([]calibrationResponse, 0, len(profiles)),
	}
	for _, p := range profiles {
		response.Calibrations = append(response.Calibrations, toResponse(p))
	}

	WriteJSON(w, http.StatusOK, response)
}

// get handles GET /api/calibrations/{id}.
func (h *CalibrationHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	profile, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Calibration not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get calibration")
		return
	}

	WriteJSON(w, http.StatusOK, toResponse(profile))
}

// create handles POST /api/calibrations.
func (h *CalibrationHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createCalibrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if err := req.Geometry.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile := &store.Profile{
		Name:     req.Name,
		Geometry: req.Geometry,
	}

	switch {
	case len(req.Pairs) > 0:
		pairs := make([]spatial.Correspondence, len(req.Pairs))
		for i, c := range req.Pairs {
			pairs[i] = spatial.Correspondence{
				Color: image.Pt(c.Color[0], c.Color[1]),
				Depth: image.Pt(c.Depth[0], c.Depth[1]),
			}
		}
		offset, err := spatial.EstimateOffset(pairs, req.Geometry)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		profile.Offset = offset
		profile.Samples = len(pairs)
	case req.OffsetX != nil && req.OffsetY != nil:
		profile.Offset = image.Pt(*req.OffsetX, *req.OffsetY)
	default:
		writeError(w, http.StatusBadRequest, "Either pairs or offset_x and offset_y are required")
		return
	}

	if err := h.store.Profiles().Create(profile); err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			writeError(w, http.StatusConflict, "Calibration name already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create calibration")
		return
	}

	WriteJSON(w, http.StatusCreated, toResponse(profile))
}

// delete handles DELETE /api/calibrations/{id}.
func (h *CalibrationHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Profiles().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Calibration not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete calibration")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
