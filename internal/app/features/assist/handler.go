package assist

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	assistsvc "github.com/cadetlink/cadetlink/internal/app/system/assist"
	"github.com/cadetlink/cadetlink/internal/app/system/timeouts"
)

const maxBody = 16 << 10

// Handler exposes the assist helpers as JSON endpoints. Service may be
// nil when no API key is configured; the endpoints then report the
// feature as disabled instead of failing requests.
type Handler struct {
	Service assistsvc.Service
	Log     *zap.Logger
}

func NewHandler(service assistsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Service: service, Log: logger}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) disabled(w http.ResponseWriter) {
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"error": "Assist is not enabled on this server.",
	})
}

// HandleAutofill extracts profile fields from pasted free text.
// POST /assist/autofill {"text": "..."}
func (h *Handler) HandleAutofill(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		h.disabled(w)
		return
	}

	var in struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body."})
		return
	}
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Text is required."})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res, err := h.Service.Autofill(ctx, in.Text)
	if err != nil {
		h.Log.Warn("assist autofill failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Autofill is unavailable right now."})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleVerifyLink sanity-checks a URL before it goes into a camp
// description.
// POST /assist/verify-link {"url": "..."}
func (h *Handler) HandleVerifyLink(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		h.disabled(w)
		return
	}

	var in struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body."})
		return
	}
	in.URL = strings.TrimSpace(in.URL)
	if in.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "URL is required."})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	verdict, err := h.Service.VerifyLink(ctx, in.URL)
	if err != nil {
		h.Log.Warn("assist verify link failed", zap.Error(err), zap.String("url", in.URL))
		// Fail closed.
		writeJSON(w, http.StatusOK, assistsvc.LinkVerdict{Safe: false, Reason: "The link could not be verified."})
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}
