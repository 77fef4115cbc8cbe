package audit

import (
	"context"
	"net/http"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Guard authorizes userID to read the audit trail of shopID.
type Guard func(ctx context.Context, shopID, userID uuid.UUID) error

type Handler struct {
	repo  Repository
	guard Guard
	log   logrus.FieldLogger
}

func NewHandler(repo Repository, guard Guard, log logrus.FieldLogger) *Handler {
	return &Handler{repo: repo, guard: guard, log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/shops/{shop_id}/audit", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	shopID, err := httpx.URLUUID(r, "shop_id")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	actorID, err := httpx.Principal(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if err := h.guard(r.Context(), shopID, actorID); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}

	page := httpx.PageFromQuery(r)
	entries, total, err := h.repo.ListByShop(r.Context(), shopID, page)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, httpx.PageResult[Entry]{Items: entries, Page: page.Number, Size: page.Size, Total: total})
}
