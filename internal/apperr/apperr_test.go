package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Keoroanthony/go-dairydelight/internal/apperr"
)

func TestKinds(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		kind   apperr.Kind
		status int
		target error
	}{
		{"validation", apperr.Validation("no order items"), apperr.KindValidation, http.StatusBadRequest, apperr.ErrValidation},
		{"not found", apperr.NotFound("order %d not found", 7), apperr.KindNotFound, http.StatusNotFound, apperr.ErrNotFound},
		{"authorization", apperr.Unauthorized("not your order"), apperr.KindAuthorization, http.StatusForbidden, apperr.ErrAuthorization},
		{"duplicate", apperr.Duplicate("product already reviewed"), apperr.KindDuplicate, http.StatusConflict, apperr.ErrDuplicate},
		{"conflict", apperr.Conflict("order changed"), apperr.KindConflict, http.StatusConflict, apperr.ErrConflict},
		{"dependency", apperr.Dependency(errors.New("conn refused"), "save order"), apperr.KindDependency, http.StatusBadGateway, apperr.ErrDependency},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("handler: %w", tc.err)
			assert.Equal(t, tc.kind, apperr.KindOf(wrapped))
			assert.Equal(t, tc.status, apperr.HTTPStatus(wrapped))
			assert.True(t, errors.Is(wrapped, tc.target))
		})
	}
}

func TestMessageHidesCause(t *testing.T) {
	cause := errors.New("pq: password authentication failed")
	err := apperr.Dependency(cause, "failed to save order")

	assert.Equal(t, "failed to save order", apperr.Message(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal server error", apperr.Message(errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, apperr.HTTPStatus(errors.New("boom")))
}

func TestIsDoesNotCrossKinds(t *testing.T) {
	err := apperr.NotFound("product not found")
	assert.False(t, errors.Is(err, apperr.ErrValidation))
}
