package telemetry

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/practrac/practrac/core"
)

func TestEchoMiddlewareExportsSpans(t *testing.T) {
	buf := new(bytes.Buffer)
	shutdown, err := Setup(&core.Config{AppName: "PracTrac", Build: "test", Env: "TEST"}, buf)
	require.NoError(t, err)

	var traced bool
	e := echo.New()
	e.Use(EchoMiddleware())
	e.GET("/sessions/:id", func(c echo.Context) error {
		traced = trace.SpanFromContext(c.Request().Context()).SpanContext().IsValid()
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, traced)

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "GET /sessions/:id")
}
