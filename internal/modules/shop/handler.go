package shop

import (
	"net/http"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	service Service
	log     logrus.FieldLogger
}

func NewHandler(service Service, log logrus.FieldLogger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/shops", h.createShop)
	r.Get("/api/v1/shops", h.listShops)
	r.Get("/api/v1/shops/{shop_id}", h.getShop)
	r.Put("/api/v1/shops/{shop_id}", h.updateShop)
	r.Post("/api/v1/shops/{shop_id}/branches", h.createBranch)
	r.Get("/api/v1/shops/{shop_id}/branches", h.listBranches)
}

func (h *Handler) createShop(w http.ResponseWriter, r *http.Request) {
	actorID, err := httpx.Principal(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var req CreateShopRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	shop, err := h.service.CreateShop(r.Context(), actorID, req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, shop)
}

func (h *Handler) listShops(w http.ResponseWriter, r *http.Request) {
	actorID, err := httpx.Principal(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	shops, err := h.service.ListShopsForUser(r.Context(), actorID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, shops)
}

func (h *Handler) getShop(w http.ResponseWriter, r *http.Request) {
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
	shop, err := h.service.GetShop(r.Context(), actorID, shopID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, shop)
}

func (h *Handler) updateShop(w http.ResponseWriter, r *http.Request) {
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
	var req UpdateShopRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	shop, err := h.service.UpdateShop(r.Context(), actorID, shopID, req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, shop)
}

func (h *Handler) createBranch(w http.ResponseWriter, r *http.Request) {
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
	var req BranchRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	branch, err := h.service.CreateBranch(r.Context(), actorID, shopID, req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, branch)
}

func (h *Handler) listBranches(w http.ResponseWriter, r *http.Request) {
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
	branches, err := h.service.ListBranches(r.Context(), actorID, shopID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, branches)
}
