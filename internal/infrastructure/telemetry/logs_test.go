package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type exportedRecord struct {
	body     string
	severity otellog.Severity
}

// captureExporter keeps every exported record in memory
type captureExporter struct {
	mu      sync.Mutex
	records []exportedRecord
}

func (e *captureExporter) Export(ctx context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, exportedRecord{body: r.Body().AsString(), severity: r.Severity()})
	}
	return nil
}

func (e *captureExporter) Shutdown(ctx context.Context) error   { return nil }
func (e *captureExporter) ForceFlush(ctx context.Context) error { return nil }

func (e *captureExporter) bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.records))
	for i, r := range e.records {
		out[i] = r.body
	}
	return out
}

func TestNewLogProvider_Disabled(t *testing.T) {
	lp, err := NewLogProvider(context.Background(), LogsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())

	base := zap.NewNop()
	assert.Same(t, base, lp.Bridge(base))
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestLogProvider_BridgeExportsAtTheBaseLevel(t *testing.T) {
	exporter := &captureExporter{}
	lp, err := newLogProvider(LogsConfig{Enabled: true, ServiceName: "cuotas-ledger"}, sdklog.NewSimpleProcessor(exporter), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = lp.Shutdown(context.Background()) })

	core, console := observer.New(zapcore.InfoLevel)
	log := lp.Bridge(zap.New(core))

	log.Debug("projection cache miss")
	log.Info("Payment recorded", zap.String("payment_id", "p-1"))
	log.Warn("Failed to publish ledger events")

	assert.Equal(t, 2, console.Len(), "the original core still receives records")
	assert.Equal(t, []string{"Payment recorded", "Failed to publish ledger events"}, exporter.bodies())

	exporter.mu.Lock()
	defer exporter.mu.Unlock()
	assert.Equal(t, otellog.SeverityInfo, exporter.records[0].severity)
	assert.Equal(t, otellog.SeverityWarn, exporter.records[1].severity)
}

func TestLogProvider_BridgeKeepsFieldsFromWith(t *testing.T) {
	exporter := &captureExporter{}
	lp, err := newLogProvider(LogsConfig{Enabled: true, ServiceName: "cuotas-ledger"}, sdklog.NewSimpleProcessor(exporter), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = lp.Shutdown(context.Background()) })

	core, _ := observer.New(zapcore.WarnLevel)
	log := lp.Bridge(zap.New(core)).With(zap.String("component", "gateway"))

	log.Info("ignored below warn")
	log.Error("Gateway callback failed")

	assert.Equal(t, []string{"Gateway callback failed"}, exporter.bodies())
}
