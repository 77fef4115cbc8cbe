package inventory

import (
	"context"
	"net/http"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handler exposes branch stock endpoints.
type Handler struct {
	service Service
	log     logrus.FieldLogger
}

func NewHandler(service Service, log logrus.FieldLogger) *Handler {
	return &Handler{service: service, log: log}
}

const branchProductsPath = "/api/v1/shops/{shop_id}/branches/{branch_id}/products"

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get(branchProductsPath, h.listProducts)
	r.Post(branchProductsPath, h.addProduct)
	r.Get(branchProductsPath+"/low-stock", h.lowStock)
	r.Patch(branchProductsPath+"/{id}", h.updateSettings)
	r.Post(branchProductsPath+"/{id}/import", h.movement(h.service.Import))
	r.Post(branchProductsPath+"/{id}/export", h.movement(h.service.Export))
	r.Post(branchProductsPath+"/{id}/adjust", h.movement(h.service.Adjust))
	r.Get(branchProductsPath+"/{id}/history", h.history)
	r.Get(branchProductsPath+"/{id}/verify", h.verify)
}

type scope struct {
	actorID  uuid.UUID
	shopID   uuid.UUID
	branchID uuid.UUID
	key      Key
}

// parseScope reads the principal and path ids. The branch product id is only
// read when withProduct is set.
func (h *Handler) parseScope(w http.ResponseWriter, r *http.Request, withProduct bool) (scope, bool) {
	var (
		sc  scope
		err error
	)
	if sc.actorID, err = httpx.Principal(r); err == nil {
		if sc.shopID, err = httpx.URLUUID(r, "shop_id"); err == nil {
			sc.branchID, err = httpx.URLUUID(r, "branch_id")
		}
	}
	if err == nil && withProduct {
		var id uuid.UUID
		id, err = httpx.URLUUID(r, "id")
		sc.key = Key{ShopID: sc.shopID, BranchID: sc.branchID, BranchProductID: id}
	}
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return scope{}, false
	}
	return sc, true
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.parseScope(w, r, false)
	if !ok {
		return
	}
	products, err := h.service.ListBranchProducts(r.Context(), sc.actorID, sc.shopID, sc.branchID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, products)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.parseScope(w, r, false)
	if !ok {
		return
	}
	products, err := h.service.LowStock(r.Context(), sc.actorID, sc.shopID, sc.branchID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, products)
}

func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.parseScope(w, r, false)
	if !ok {
		return
	}
	var req AddBranchProductRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	req.ShopID, req.BranchID = sc.shopID, sc.branchID
	bp, err := h.service.AddBranchProduct(r.Context(), sc.actorID, req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, bp)
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.parseScope(w, r, true)
	if !ok {
		return
	}
	var req SettingsRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	bp, err := h.service.UpdateSettings(r.Context(), sc.actorID, sc.key, req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, bp)
}

type movementFunc func(ctx context.Context, m Movement) (Result, error)

func (h *Handler) movement(apply movementFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := h.parseScope(w, r, true)
		if !ok {
			return
		}
		var m Movement
		if err := httpx.Decode(r, &m); err != nil {
			httpx.Error(w, r, h.log, err)
			return
		}
		m.Key = sc.key
		m.ActorID = sc.actorID
		res, err := apply(r.Context(), m)
		if err != nil {
			httpx.Error(w, r, h.log, err)
			return
		}
		httpx.Respond(w, http.StatusOK, res)
	}
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.parseScope(w, r, true)
	if !ok {
		return
	}
	page := httpx.PageFromQuery(r)
	txs, total, err := h.service.History(r.Context(), sc.actorID, sc.key, page)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, httpx.PageResult[Transaction]{Items: txs, Page: page.Number, Size: page.Size, Total: total})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.parseScope(w, r, true)
	if !ok {
		return
	}
	v, err := h.service.Verify(r.Context(), sc.actorID, sc.key)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, v)
}
