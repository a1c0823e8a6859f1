package telemetry_test

import (
	"context"
	"strings"
	"testing"

	"github.com/cuotas/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID     uint   `gorm:"primaryKey"`
	Holder string `gorm:"size:100"`
}

func setupTracedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	recorder := setupTestTracer(t)
	db := setupTracedDB(t)

	require.NoError(t, telemetry.RegisterDBTracing(db, telemetry.DBTracingConfig{Enabled: false}, zap.NewNop()))
	require.NoError(t, db.Create(&tracedRow{Holder: "Ana"}).Error)

	assert.Empty(t, recorder.Ended())
}

func TestRegisterDBTracing_Enabled(t *testing.T) {
	recorder := setupTestTracer(t)
	db := setupTracedDB(t)

	require.NoError(t, telemetry.RegisterDBTracing(db, telemetry.DBTracingConfig{Enabled: true, DBName: "cuotas"}, zap.NewNop()))
	require.NoError(t, db.WithContext(context.Background()).Create(&tracedRow{Holder: "secret-holder"}).Error)

	spans := recorder.Ended()
	require.NotEmpty(t, spans)
	for _, span := range spans {
		for _, attr := range span.Attributes() {
			assert.False(t, strings.Contains(attr.Value.Emit(), "secret-holder"),
				"bound values must stay out of spans, found in %s", attr.Key)
		}
	}
}
