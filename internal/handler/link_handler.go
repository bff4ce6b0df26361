package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Siddarth2230/qrlinks/internal/auth"
	"github.com/Siddarth2230/qrlinks/internal/models"
	"github.com/Siddarth2230/qrlinks/internal/service"
)

const (
	msgLinkNotFound     = "QR Link not found."
	msgServerError      = "Server error."
	msgDynamicNotFound  = "Dynamic QR link not found."
	msgOriginalRequired = "Original content is required."
	msgNewRequired      = "New content is required."
	msgUpdated          = "QR content updated successfully!"
	msgUnavailable      = "Service temporarily unavailable."
	msgBadPayload       = "invalid request payload"
	msgTooLarge         = "request payload too large"
)

type LinkHandler struct {
	registry *service.Registry
	resolver *service.Resolver
	rewriter *service.Rewriter
	baseURL  string
}

func NewLinkHandler(registry *service.Registry, resolver *service.Resolver, rewriter *service.Rewriter, baseURL string) *LinkHandler {
	return &LinkHandler{
		registry: registry,
		resolver: resolver,
		rewriter: rewriter,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

func (h *LinkHandler) shortURL(code string) string {
	return h.baseURL + "/s/" + code
}

// POST /api/generate-dynamic-qr
func (h *LinkHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.OriginalContent) == "" {
		writeError(w, http.StatusBadRequest, msgOriginalRequired)
		return
	}

	params := service.CreateParams{Target: req.OriginalContent}
	if ref := strings.TrimSpace(req.EventRef); ref != "" {
		params.EventRef = &ref
	}
	if p, ok := auth.FromContext(ctx); ok {
		id := p.ID
		params.Creator = &id
	}

	link, err := h.registry.Create(ctx, params)
	if err != nil {
		h.writeServiceError(w, r, err, msgDynamicNotFound)
		return
	}

	writeJSON(w, http.StatusCreated, models.GenerateResponse{
		ShortURL:  h.shortURL(link.Code),
		ShortCode: link.Code,
	})
}

// GET /s/{shortCode} - redirect to the current target
func (h *LinkHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["shortCode"]

	target, err := h.resolver.Resolve(r.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeText(w, http.StatusNotFound, msgLinkNotFound)
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Str("short_code", code).Msg("redirect failed")
		writeText(w, http.StatusInternalServerError, msgServerError)
		return
	}

	// 302 so scanners never cache a target that can be rewritten
	http.Redirect(w, r, target, http.StatusFound)
}

// PUT /api/update-dynamic-qr/{shortCode}
func (h *LinkHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["shortCode"]

	var req models.UpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.NewContent) == "" {
		writeError(w, http.StatusBadRequest, msgNewRequired)
		return
	}

	principal, _ := auth.FromContext(ctx)
	link, err := h.rewriter.Rewrite(ctx, principal, code, req.NewContent)
	if err != nil {
		h.writeServiceError(w, r, err, msgDynamicNotFound)
		return
	}

	writeJSON(w, http.StatusOK, models.UpdateResponse{
		Message:       msgUpdated,
		UpdatedQrLink: link,
	})
}

// GET /api/qr-links/{shortCode}
func (h *LinkHandler) Get(w http.ResponseWriter, r *http.Request) {
	link, err := h.registry.FindByCode(r.Context(), mux.Vars(r)["shortCode"])
	if err != nil {
		h.writeServiceError(w, r, err, msgDynamicNotFound)
		return
	}
	writeJSON(w, http.StatusOK, models.LinkResponse{ShortURL: h.shortURL(link.Code), ShortLink: link})
}

// GET /api/qr-links/event/{eventRef}
func (h *LinkHandler) GetByEvent(w http.ResponseWriter, r *http.Request) {
	link, err := h.registry.FindByEvent(r.Context(), mux.Vars(r)["eventRef"])
	if err != nil {
		h.writeServiceError(w, r, err, "No QR link found for this event.")
		return
	}
	writeJSON(w, http.StatusOK, models.LinkResponse{ShortURL: h.shortURL(link.Code), ShortLink: link})
}

// DELETE /api/qr-links/{shortCode}
func (h *LinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), mux.Vars(r)["shortCode"]); err != nil {
		h.writeServiceError(w, r, err, msgDynamicNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/qr-links/event/{eventRef}
func (h *LinkHandler) DeleteByEvent(w http.ResponseWriter, r *http.Request) {
	n, err := h.registry.DeleteByEvent(r.Context(), mux.Vars(r)["eventRef"])
	if err != nil {
		h.writeServiceError(w, r, err, msgDynamicNotFound)
		return
	}
	writeJSON(w, http.StatusOK, models.DeleteByEventResponse{Deleted: n})
}

// GET /health
func (h *LinkHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Ping(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps service errors to HTTP responses.
func (h *LinkHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": "))
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, service.ErrCollisionExhausted), errors.Is(err, service.ErrStorageUnavailable):
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("storage unavailable")
		writeError(w, http.StatusServiceUnavailable, msgUnavailable)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("unhandled service error")
		writeError(w, http.StatusInternalServerError, msgServerError)
	}
}
