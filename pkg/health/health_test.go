package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunWorstStatusWins(t *testing.T) {
	c := NewChecker()
	c.Register("store", PingCheck(func(context.Context) error { return nil }, true))
	c.Register("cache", PingCheck(func(context.Context) error { return errors.New("refused") }, false))

	report := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusUp, report.Components["store"].Status)
	assert.Equal(t, "refused", report.Components["cache"].Message)

	c.Register("store", PingCheck(func(context.Context) error { return errors.New("locked") }, true))
	assert.Equal(t, StatusDown, c.Run(context.Background()).Status)
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("store", PingCheck(func(context.Context) error { return errors.New("gone") }, true))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
