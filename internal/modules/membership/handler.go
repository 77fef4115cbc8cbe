package membership

import (
	"net/http"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	resolver Resolver
	log      logrus.FieldLogger
}

func NewHandler(resolver Resolver, log logrus.FieldLogger) *Handler {
	return &Handler{resolver: resolver, log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/shops/{shop_id}/members", h.listMembers)
	r.Post("/api/v1/shops/{shop_id}/members", h.addMember)
	r.Delete("/api/v1/shops/{shop_id}/members/{user_id}", h.removeMember)
	r.Get("/api/v1/shops/{shop_id}/me/permissions", h.myPermissions)
}

// scope reads the shop id and principal every route needs.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (shopID, actorID uuid.UUID, ok bool) {
	shopID, err := httpx.URLUUID(r, "shop_id")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return uuid.Nil, uuid.Nil, false
	}
	actorID, err = httpx.Principal(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return uuid.Nil, uuid.Nil, false
	}
	return shopID, actorID, true
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	shopID, actorID, ok := h.scope(w, r)
	if !ok {
		return
	}
	if err := h.resolver.Authorize(r.Context(), shopID, nil, actorID, PermMemberView); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	members, err := h.resolver.ListMembers(r.Context(), shopID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, members)
}

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	shopID, actorID, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req AddMemberRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if err := h.resolver.Authorize(r.Context(), shopID, req.BranchID, actorID, PermMemberManage); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	// Only an owner may hand out ownership.
	if req.Role == RoleOwner {
		if err := h.resolver.RequireRole(r.Context(), shopID, actorID, RoleOwner); err != nil {
			httpx.Error(w, r, h.log, err)
			return
		}
	}

	req.ShopID = shopID
	req.ActorID = actorID
	m, err := h.resolver.AddMember(r.Context(), req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, m)
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	shopID, actorID, ok := h.scope(w, r)
	if !ok {
		return
	}
	userID, err := httpx.URLUUID(r, "user_id")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	branchID, err := httpx.QueryUUID(r, "branch_id")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if err := h.resolver.Authorize(r.Context(), shopID, branchID, actorID, PermMemberManage); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if err := h.resolver.RemoveMember(r.Context(), shopID, userID, branchID, actorID); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	shopID, actorID, ok := h.scope(w, r)
	if !ok {
		return
	}
	branchID, err := httpx.QueryUUID(r, "branch_id")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	role, err := h.resolver.RoleOfAt(r.Context(), shopID, branchID, actorID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, map[string]interface{}{
		"role":        role,
		"permissions": PermissionsOf(role),
	})
}
