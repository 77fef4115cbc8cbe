package catalog

import (
	"net/http"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handler exposes catalog HTTP endpoints.
type Handler struct {
	service Service
	log     logrus.FieldLogger
}

func NewHandler(service Service, log logrus.FieldLogger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/shops/{shop_id}/products", h.listProducts)
	r.Post("/api/v1/shops/{shop_id}/products", h.createProduct)
	r.Get("/api/v1/shops/{shop_id}/products/{id}", h.getProduct)
	r.Put("/api/v1/shops/{shop_id}/products/{id}", h.updateProduct)
	r.Delete("/api/v1/shops/{shop_id}/products/{id}", h.deactivateProduct)
}

// ids reads the principal, the shop and, when withProduct is set, the product id.
func (h *Handler) ids(w http.ResponseWriter, r *http.Request, withProduct bool) (actorID, shopID, productID uuid.UUID, ok bool) {
	var err error
	if actorID, err = httpx.Principal(r); err == nil {
		if shopID, err = httpx.URLUUID(r, "shop_id"); err == nil && withProduct {
			productID, err = httpx.URLUUID(r, "id")
		}
	}
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	return actorID, shopID, productID, true
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	actorID, shopID, _, ok := h.ids(w, r, false)
	if !ok {
		return
	}
	filter := Filter{
		Category:   r.URL.Query().Get("category"),
		ActiveOnly: r.URL.Query().Get("active") != "false",
	}
	products, err := h.service.ListProducts(r.Context(), actorID, shopID, filter)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, products)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	actorID, shopID, _, ok := h.ids(w, r, false)
	if !ok {
		return
	}
	var req ProductRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	p, err := h.service.CreateProduct(r.Context(), actorID, shopID, req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, p)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	actorID, shopID, id, ok := h.ids(w, r, true)
	if !ok {
		return
	}
	p, err := h.service.GetProduct(r.Context(), actorID, shopID, id)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	actorID, shopID, id, ok := h.ids(w, r, true)
	if !ok {
		return
	}
	var req ProductRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), actorID, shopID, id, req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) deactivateProduct(w http.ResponseWriter, r *http.Request) {
	actorID, shopID, id, ok := h.ids(w, r, true)
	if !ok {
		return
	}
	if err := h.service.DeactivateProduct(r.Context(), actorID, shopID, id); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
