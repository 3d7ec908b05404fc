package presenter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/donatale/donatale/internal/domain"
)

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid", domain.InvalidRequestError{Fields: []string{"itemId"}}, http.StatusBadRequest},
		{"not found", domain.NotFoundError{Resource: "donation item"}, http.StatusNotFound},
		{"conflict", errors.Wrap(domain.ConflictError{ItemID: "42"}, "reserve"), http.StatusConflict},
		{"upstream", domain.UpstreamError{Op: "create event", Err: errors.New("boom")}, http.StatusInternalServerError},
		{"configuration", domain.ConfigurationError{Setting: "x"}, http.StatusInternalServerError},
	}

	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/donate", nil), rec)

			err := Error(c, zerolog.Nop(), tc.err)
			assert.NoError(t, err)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusInternalServerError {
				assert.Contains(t, rec.Body.String(), internalErrorMessage)
				assert.NotContains(t, rec.Body.String(), "boom")
			}
		})
	}
}
