package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	sentinel := New(Conflict, "DUP", "duplicate")
	cases := []struct {
		err  error
		want int
	}{
		{New(Invalid, "X", "x"), http.StatusBadRequest},
		{New(Unauthorized, "X", "x"), http.StatusUnauthorized},
		{New(Forbidden, "X", "x"), http.StatusForbidden},
		{NotFoundf("missing %s", "thing"), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", sentinel), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HTTPStatus(c.err), c.err.Error())
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	sentinel := New(NotFound, "GONE", "gone")
	err := fmt.Errorf("lookup: %w", sentinel)
	assert.True(t, errors.Is(err, sentinel))
	assert.Equal(t, NotFound, KindOf(err))
}
