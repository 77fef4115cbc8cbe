package httpx

import (
	"net/http"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/apperr"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// URLUUID parses the chi URL parameter name as a uuid.
func URLUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Invalidf("invalid %s", name)
	}
	return id, nil
}

// QueryUUID parses an optional query parameter. Absent means nil.
func QueryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Invalidf("invalid %s", name)
	}
	return &id, nil
}

// QueryTime parses an optional RFC 3339 timestamp or YYYY-MM-DD date
// (midnight UTC). Absent means the zero time.
func QueryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, apperr.Invalidf("invalid %s", name)
	}
	return t, nil
}

// Principal returns the authenticated user id.
func Principal(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(PrincipalID(r))
	if err != nil {
		return uuid.Nil, errUnauthenticated
	}
	return id, nil
}
