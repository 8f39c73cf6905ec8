package collection

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/partnerdesk/internal/partners"
	"github.com/odyssey-erp/partnerdesk/internal/platform/httpx"
)

const maxBodyBytes = 1 << 20

// Handler exposes one kind under /api/v1/{segment}.
type Handler struct {
	service *Service
	schema  partners.Schema
	logger  *slog.Logger
}

// NewHandler constructs the HTTP handler for service.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, schema: service.Schema(), logger: logger}
}

// Schema returns the served kind's schema.
func (h *Handler) Schema() partners.Schema {
	return h.schema
}

// MountRoutes attaches the collection routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/get", h.list)
	r.Post("/add", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, r, "list", err)
		return
	}
	h.writeRecords(w, records)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get", err)
		return
	}
	h.writeRecord(w, http.StatusOK, rec)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), draft)
	if err != nil {
		h.fail(w, r, "create", err)
		return
	}
	h.writeRecord(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	draft, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Update(r.Context(), id, draft)
	if err != nil {
		h.fail(w, r, "update", err)
		return
	}
	h.writeRecord(w, http.StatusOK, updated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", fmt.Sprintf("invalid %s id", h.schema.Segment))
		return 0, false
	}
	return id, true
}

func (h *Handler) decodeDraft(w http.ResponseWriter, r *http.Request) (partners.Draft, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httpx.Problem(w, http.StatusRequestEntityTooLarge, "Body Too Large", err.Error())
		return partners.Draft{}, false
	}
	draft, err := h.schema.DecodeDraft(body)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return partners.Draft{}, false
	}
	return draft, true
}

func (h *Handler) writeRecord(w http.ResponseWriter, status int, rec partners.Record) {
	body, err := h.schema.EncodeRecord(rec)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.RawJSON(w, status, body)
}

func (h *Handler) writeRecords(w http.ResponseWriter, records []partners.Record) {
	body, err := h.schema.EncodeRecords(records)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.RawJSON(w, http.StatusOK, body)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	attrs := []any{slog.String("op", op), slog.String("segment", h.schema.Segment), slog.Any("error", err)}
	if errors.Is(err, httpx.ErrNotFound) || errors.Is(err, httpx.ErrDuplicate) || errors.Is(err, httpx.ErrValidation) {
		h.logger.DebugContext(r.Context(), "collection request rejected", attrs...)
	} else {
		h.logger.ErrorContext(r.Context(), "collection request failed", attrs...)
	}
	httpx.RespondError(w, err)
}
