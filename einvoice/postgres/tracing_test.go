package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alapierre/go-einvoice-client/einvoice/tokencache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	prev := otel.GetTracerProvider()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return sr
}

// unreachableDB fails every query with connection refused, no server needed.
func unreachableDB(t *testing.T) *DB {
	t.Helper()
	sqlDB, err := sql.Open("postgres", "postgres://einvoice@127.0.0.1:1/einvoice?sslmode=disable&connect_timeout=1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return &DB{sqlDB}
}

func TestTokenStore_EmitsSpans(t *testing.T) {
	sr := recordSpans(t)
	store := NewTokenStore(unreachableDB(t))
	ctx := context.Background()

	_, _, err := store.Get(ctx, "02345678")
	require.Error(t, err)
	err = store.Put(ctx, "02345678", tokencache.Entry{Token: "secret-token", ExpiresAt: time.Now()})
	require.Error(t, err)

	ended := sr.Ended()
	require.Len(t, ended, 2)

	assert.Equal(t, "db.QueryRow", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.String("db.operation", "SELECT"))
	assert.Contains(t, ended[0].Attributes(), attribute.String("db.statement", "SELECT token, expires_at FROM einvoice_tokens WHERE tin = $1"))
	assert.Equal(t, codes.Error, ended[0].Status().Code)

	assert.Equal(t, "db.Exec", ended[1].Name())
	assert.Contains(t, ended[1].Attributes(), attribute.String("db.operation", "INSERT"))
	assert.Equal(t, codes.Error, ended[1].Status().Code)
	for _, kv := range ended[1].Attributes() {
		assert.NotContains(t, kv.Value.Emit(), "secret-token")
	}
}
