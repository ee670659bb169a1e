package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spounge-ai/ffproxy/internal/domain"
	app_errors "github.com/spounge-ai/ffproxy/internal/errors"
	"github.com/spounge-ai/ffproxy/internal/service"
)

// Handler serves the public routes.
type Handler struct {
	svc        service.AccountService
	classifier *app_errors.ErrorClassifier
	logger     *slog.Logger
}

func NewHandler(svc service.AccountService, classifier *app_errors.ErrorClassifier, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, classifier: classifier, logger: logger}
}

// Register mounts the routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /get", h.getAccount)
	mux.HandleFunc("GET /region", h.getRegion)
	mux.HandleFunc("GET /refresh", h.refresh)
	mux.HandleFunc("POST /refresh", h.refresh)
	mux.HandleFunc("GET /healthz", h.healthz)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	uid := strings.TrimSpace(r.URL.Query().Get("uid"))
	if uid == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "Please provide UID.")
		return
	}

	res, err := h.svc.Lookup(r.Context(), uid, r.URL.Query().Get("region"))
	if err != nil {
		h.fail(w, r, err, "get_account")
		return
	}

	writeJSON(w, http.StatusOK, FormatAccount(res.Record, res.EffectiveRegion))
}

type regionResponse struct {
	UID      string `json:"uid"`
	Nickname string `json:"nickname"`
	Region   string `json:"region"`
}

// getRegion is always a single-region lookup, against the default region
// when none is given.
func (h *Handler) getRegion(w http.ResponseWriter, r *http.Request) {
	uid := strings.TrimSpace(r.URL.Query().Get("uid"))
	if uid == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "Please provide UID.")
		return
	}
	region := r.URL.Query().Get("region")
	if strings.TrimSpace(region) == "" {
		region = h.svc.DefaultRegion()
	}

	res, err := h.svc.Lookup(r.Context(), uid, region)
	if err != nil {
		h.fail(w, r, err, "get_region")
		return
	}

	if res.Record.Region() == "" {
		writeError(w, http.StatusNotFound, "region_not_found", "Region information not found for this UID.")
		return
	}
	writeJSON(w, http.StatusOK, regionResponse{
		UID:      uid,
		Nickname: res.Record.Nickname(),
		Region:   res.Record.Region(),
	})
}

type refreshRegion struct {
	domain.RefreshOutcome
	Error string `json:"error,omitempty"`
}

type refreshResponse struct {
	Message string          `json:"message"`
	Regions []refreshRegion `json:"regions"`
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	outcomes := h.svc.RefreshTokens(r.Context())

	resp := refreshResponse{Regions: make([]refreshRegion, 0, len(outcomes))}
	failed := 0
	for _, o := range outcomes {
		item := refreshRegion{RefreshOutcome: o}
		if o.Err != nil {
			item.Error = h.classifier.Classify(o.Err, "refresh").Kind
			failed++
		}
		resp.Regions = append(resp.Regions, item)
	}

	status := http.StatusOK
	switch {
	case failed == 0:
		resp.Message = "Tokens refreshed for all regions."
	case failed < len(outcomes):
		resp.Message = "Tokens refreshed with failures."
	default:
		resp.Message = "Refresh failed for all regions."
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

type healthResponse struct {
	Status string               `json:"status"`
	Tokens []domain.TokenStatus `json:"tokens"`
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	tokens := h.svc.TokenStatus()
	resp := healthResponse{Status: "degraded", Tokens: tokens}
	status := http.StatusServiceUnavailable
	for _, t := range tokens {
		if t.State == domain.TokenValid {
			resp.Status = "ok"
			status = http.StatusOK
			break
		}
	}
	writeJSON(w, status, resp)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	classified := h.classifier.LogAndSanitize(r.Context(), h.classifier.Classify(err, op))
	writeClassified(w, classified)
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeClassified(w http.ResponseWriter, c *app_errors.ClassifiedError) {
	writeError(w, c.HTTPStatus(), c.Kind, c.ClientMessage)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: message, Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
