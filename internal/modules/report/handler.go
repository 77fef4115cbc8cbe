package report

import (
	"fmt"
	"net/http"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Handler exposes report HTTP endpoints.
type Handler struct {
	service Service
	log     logrus.FieldLogger
}

func NewHandler(service Service, log logrus.FieldLogger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/shops/{shop_id}/reports/sales", h.sales) // ?branch_id=&from=2024-01-01&to=2024-02-01
	r.Get("/api/v1/shops/{shop_id}/branches/{branch_id}/reports/stock", h.stock)
	r.Get("/api/v1/shops/{shop_id}/branches/{branch_id}/reports/stock.csv", h.stockCSV)
}

func (h *Handler) sales(w http.ResponseWriter, r *http.Request) {
	actorID, err := httpx.Principal(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	shopID, err := httpx.URLUUID(r, "shop_id")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	branchID, err := httpx.QueryUUID(r, "branch_id")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	from, err := httpx.QueryTime(r, "from")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	to, err := httpx.QueryTime(r, "to")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}

	summary, err := h.service.SalesSummary(r.Context(), actorID, shopID, branchID, from, to)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, summary)
}

func (h *Handler) stock(w http.ResponseWriter, r *http.Request) {
	actorID, err := httpx.Principal(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	shopID, err := httpx.URLUUID(r, "shop_id")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	branchID, err := httpx.URLUUID(r, "branch_id")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	snap, err := h.service.StockSnapshot(r.Context(), actorID, shopID, branchID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, snap)
}

func (h *Handler) stockCSV(w http.ResponseWriter, r *http.Request) {
	actorID, err := httpx.Principal(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	shopID, err := httpx.URLUUID(r, "shop_id")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	branchID, err := httpx.URLUUID(r, "branch_id")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	path, err := h.service.ExportStockCSV(r.Context(), actorID, shopID, branchID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="stock-%s.csv"`, branchID))
	http.ServeFile(w, r, path)
}
