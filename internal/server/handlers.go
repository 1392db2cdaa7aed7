package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/franckalain/eatsmarty/internal/catalog"
	"github.com/franckalain/eatsmarty/internal/models"
	"github.com/franckalain/eatsmarty/internal/product"
)

const (
	defaultScanLimit = 20
	maxScanLimit     = 100
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// settingsPatch is the PUT /api/settings body; omitted fields are unchanged.
type settingsPatch struct {
	Theme                *string `json:"theme"`
	NotificationsEnabled *bool   `json:"notifications_enabled"`
	ScanHistoryEnabled   *bool   `json:"scan_history_enabled"`
}

// productView is a product with the worst safety rating among its additives
type productView struct {
	models.Product
	AdditiveSafety catalog.Safety `json:"additive_safety,omitempty"`
}

func (s *Server) viewProduct(p models.Product) productView {
	v := productView{Product: p}
	if s.deps.Catalog != nil {
		v.AdditiveSafety = s.deps.Catalog.WorstSafety(p.Additives)
	}
	return v
}

// writeJSON encodes v before writing the header so an unencodable value
// becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"kind":"internal","message":"Failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Kind: kind, Message: message})
}

func resolveStatus(kind product.OutcomeKind) int {
	switch kind {
	case product.Invalid:
		return http.StatusBadRequest
	case product.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	p, err := s.deps.Resolver.Resolve(r.Context(), barcode)
	if err != nil {
		kind := product.Outcome(err)
		s.logger.Info("product lookup failed",
			zap.String("barcode", barcode),
			zap.String("outcome", string(kind)),
			zap.Error(err),
		)
		writeError(w, resolveStatus(kind), string(kind), product.Message(err))
		return
	}
	writeJSON(w, http.StatusOK, s.viewProduct(p))
}

func (s *Server) handleLastProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := s.deps.Products.Scanned()
	if !ok {
		writeError(w, http.StatusNotFound, string(product.NotFound), "No product scanned yet")
		return
	}
	writeJSON(w, http.StatusOK, s.viewProduct(p))
}

func (s *Server) handleClearLastProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Products.ClearScanned(r.Context()); err != nil {
		s.logger.Error("failed to clear scanned product", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "Failed to clear scanned product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.deps.Products.Recent(),
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Products.ClearHistory(r.Context()); err != nil {
		s.logger.Error("failed to clear history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "Failed to clear history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Settings.Get())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "Invalid settings body")
		return
	}

	var theme models.Theme
	if patch.Theme != nil {
		t, err := models.ParseTheme(*patch.Theme)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid", err.Error())
			return
		}
		theme = t
	}

	err := s.deps.Settings.Update(r.Context(), func(p *models.Preferences) {
		if patch.Theme != nil {
			p.Theme = theme
		}
		if patch.NotificationsEnabled != nil {
			p.NotificationsEnabled = *patch.NotificationsEnabled
		}
		if patch.ScanHistoryEnabled != nil {
			p.ScanHistoryEnabled = *patch.ScanHistoryEnabled
		}
	})
	if err != nil {
		s.logger.Error("failed to update settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "Failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Settings.Get())
}

func (s *Server) handleListAdditives(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.deps.Catalog.Search(r.URL.Query().Get("q")),
	})
}

func (s *Server) handleGetAdditive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Catalog.Lookup(chi.URLParam(r, "id")))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.deps.Catalog.Categories(),
	})
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.deps.Catalog.Category(chi.URLParam(r, "slug"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Unknown category")
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (s *Server) handleRecentScans(w http.ResponseWriter, r *http.Request) {
	limit := defaultScanLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid", "limit must be a positive integer")
			return
		}
		limit = min(n, maxScanLimit)
	}

	scans, err := s.deps.DB.GetRecentScans(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to load scans", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "Failed to retrieve scans")
		return
	}
	if scans == nil {
		scans = []*models.ScanRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": scans})
}
