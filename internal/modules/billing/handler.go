package billing

import (
	"net/http"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handler exposes billing HTTP endpoints.
type Handler struct {
	service Service
	log     logrus.FieldLogger
}

func NewHandler(service Service, log logrus.FieldLogger) *Handler {
	return &Handler{service: service, log: log}
}

const subscriptionPath = "/api/v1/shops/{shop_id}/subscription"

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/plans", h.listPlans)
	r.Get(subscriptionPath, h.getSubscription)
	r.Post(subscriptionPath, h.subscribe)
	r.Patch(subscriptionPath+"/plan", h.changePlan)
	r.Post(subscriptionPath+"/cancel", h.cancel)
}

func (h *Handler) ids(w http.ResponseWriter, r *http.Request) (actorID, shopID uuid.UUID, ok bool) {
	var err error
	if actorID, err = httpx.Principal(r); err == nil {
		shopID, err = httpx.URLUUID(r, "shop_id")
	}
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return uuid.Nil, uuid.Nil, false
	}
	return actorID, shopID, true
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, plans)
}

func (h *Handler) getSubscription(w http.ResponseWriter, r *http.Request) {
	actorID, shopID, ok := h.ids(w, r)
	if !ok {
		return
	}
	sub, err := h.service.GetSubscription(r.Context(), actorID, shopID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, sub)
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	actorID, shopID, ok := h.ids(w, r)
	if !ok {
		return
	}
	var req SubscribeRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	sub, err := h.service.Subscribe(r.Context(), actorID, shopID, req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, sub)
}

func (h *Handler) changePlan(w http.ResponseWriter, r *http.Request) {
	actorID, shopID, ok := h.ids(w, r)
	if !ok {
		return
	}
	var req ChangePlanRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	sub, err := h.service.ChangePlan(r.Context(), actorID, shopID, req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, sub)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	actorID, shopID, ok := h.ids(w, r)
	if !ok {
		return
	}
	var req CancelRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	sub, err := h.service.Cancel(r.Context(), actorID, shopID, req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, sub)
}
