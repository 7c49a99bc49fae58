package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"sheetlens/internal/shared/testutil"
)

func TestHealthService(t *testing.T) {
	logger, capture := testutil.NewTestLogger(t)
	hs := NewHealthService("1.2.3", "2024-01-01T00:00:00Z", logger)
	ctx := context.Background()

	assert.Equal(t, "ok", hs.HealthCheck(ctx).Status)
	assert.Equal(t, "alive", hs.LivenessCheck(ctx).Status)

	ready := hs.ReadinessCheck(ctx)
	assert.Equal(t, "ready", ready.Status)
	assert.Empty(t, ready.Services)

	hs.Register("analysis", func(context.Context) ServiceHealth { return Ready("fine") })
	assert.Equal(t, "ready", hs.ReadinessCheck(ctx).Status)

	hs.Register("websocket", func(context.Context) ServiceHealth {
		return ServiceHealth{Status: "not_ready", Message: "draining"}
	})
	status := hs.ReadinessCheck(ctx)
	assert.Equal(t, "not_ready", status.Status)
	assert.Equal(t, "draining", status.Services["websocket"].Message)
	assert.Equal(t, "fine", status.Services["analysis"].Message)
	assert.True(t, capture.HasMessage("Component not ready"))

	v := hs.Version()
	assert.Equal(t, "1.2.3", v["version"])
	assert.Equal(t, "2024-01-01T00:00:00Z", v["build_time"])
}
