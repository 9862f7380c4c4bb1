package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadyAggregatesChecks(t *testing.T) {
	svc := NewService()
	svc.Register("postgres", func(context.Context) error { return nil })
	svc.Register("mongo", func(context.Context) error { return errors.New("server selection timeout") })
	svc.Register("ignored", nil)

	report := svc.Ready(context.Background())
	assert.False(t, report.OK)
	assert.Equal(t, "ok", report.Checks["postgres"])
	assert.Equal(t, "server selection timeout", report.Checks["mongo"])
	assert.Equal(t, []string{"mongo", "postgres"}, svc.Names())
}

func TestReadyWithoutChecks(t *testing.T) {
	report := NewService().Ready(context.Background())
	assert.True(t, report.OK)
	assert.Empty(t, report.Checks)
	assert.True(t, NewService().Status()["ok"])
}
