package order

import (
	"net/http"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handler exposes order HTTP endpoints.
type Handler struct {
	service Service
	log     logrus.FieldLogger
}

func NewHandler(service Service, log logrus.FieldLogger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/shops/{shop_id}/branches/{branch_id}/orders", h.placeOrder)
	r.Get("/api/v1/shops/{shop_id}/branches/{branch_id}/orders", h.listBranchOrders) // ?status=PENDING&from=2024-01-01&to=...
	r.Get("/api/v1/shops/{shop_id}/orders/{id}", h.getOrder)
	r.Patch("/api/v1/shops/{shop_id}/orders/{id}/status", h.updateStatus)
	r.Delete("/api/v1/shops/{shop_id}/orders/{id}", h.cancelOrder)
}

// ids reads the principal, the shop and the named path id.
func (h *Handler) ids(w http.ResponseWriter, r *http.Request, name string) (actorID, shopID, id uuid.UUID, ok bool) {
	var err error
	if actorID, err = httpx.Principal(r); err == nil {
		if shopID, err = httpx.URLUUID(r, "shop_id"); err == nil {
			id, err = httpx.URLUUID(r, name)
		}
	}
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	return actorID, shopID, id, true
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	actorID, shopID, branchID, ok := h.ids(w, r, "branch_id")
	if !ok {
		return
	}
	var req PlaceOrderRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	req.ShopID, req.BranchID = shopID, branchID
	o, err := h.service.PlaceOrder(r.Context(), actorID, req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, o)
}

func (h *Handler) listBranchOrders(w http.ResponseWriter, r *http.Request) {
	actorID, shopID, branchID, ok := h.ids(w, r, "branch_id")
	if !ok {
		return
	}
	filter := Filter{Status: Status(r.URL.Query().Get("status"))}
	var err error
	if filter.From, err = httpx.QueryTime(r, "from"); err == nil {
		filter.To, err = httpx.QueryTime(r, "to")
	}
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	page := httpx.PageFromQuery(r)
	orders, total, err := h.service.ListBranchOrders(r.Context(), actorID, shopID, branchID, filter, page)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, httpx.PageResult[Order]{Items: orders, Page: page.Number, Size: page.Size, Total: total})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	actorID, shopID, id, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	o, err := h.service.GetOrder(r.Context(), actorID, shopID, id)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, o)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	actorID, shopID, id, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	o, err := h.service.UpdateStatus(r.Context(), actorID, shopID, id, req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, o)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	actorID, shopID, id, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	o, err := h.service.CancelOrder(r.Context(), actorID, shopID, id)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, o)
}
