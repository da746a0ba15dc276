package database

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Mark-AImagineers/NoteKo/pkg/logger"
)

func installRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exp
}

func TestQueryTracer_RecordsSpan(t *testing.T) {
	exp := installRecorder(t)

	qt := &QueryTracer{}
	_, end := qt.Trace(context.Background(), "GetUserByEmail", "SELECT id FROM users WHERE email = $1")
	end(errors.New("boom"))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "db.GetUserByEmail", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestQueryTracer_SlowQueryWarning(t *testing.T) {
	installRecorder(t)
	var buf bytes.Buffer
	qt := &QueryTracer{Threshold: time.Nanosecond, Logger: logger.NewWithWriter("test", "info", &buf)}

	_, end := qt.Trace(context.Background(), "CreateUser", "INSERT INTO users")
	time.Sleep(time.Millisecond)
	end(nil)

	assert.Contains(t, buf.String(), "slow query")
	assert.Contains(t, buf.String(), "CreateUser")
}

func TestQueryTracer_FastQuerySilent(t *testing.T) {
	installRecorder(t)
	var buf bytes.Buffer
	qt := &QueryTracer{Threshold: time.Hour, Logger: logger.NewWithWriter("test", "info", &buf)}

	_, end := qt.Trace(context.Background(), "CreateUser", "INSERT INTO users")
	end(nil)

	assert.Zero(t, buf.Len())
}
