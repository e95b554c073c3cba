package proxy

import (
	"context"
	"net/http"
	"testing"

	"github.com/alapierre/go-einvoice-client/einvoice"
	"github.com/go-faster/errors"
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

func TestTracing_SpanPerRoute(t *testing.T) {
	sr := recordSpans(t)
	srv := newServer(t, &stubAuth{token: "tok-1"}, &stubInvoices{}, nil)

	status, _ := post(t, srv, "/api/tax/auth", `{"tin":"02345678","username":"u","password":"p"}`)
	require.Equal(t, http.StatusOK, status)

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "POST /api/tax/auth", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.Int("http.status_code", http.StatusOK))
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
}

func TestTracing_UpstreamFailureMarksSpan(t *testing.T) {
	sr := recordSpans(t)
	inv := &stubInvoices{err: errors.Wrap(einvoice.ErrUpstreamTransport, "dial")}
	srv := newServer(t, &stubAuth{}, inv, nil)

	status, _ := post(t, srv, "/api/tax/invoices", `{"token":"tok","tin":"1","since":"2025-02-01T00:00:00Z"}`)
	require.Equal(t, http.StatusBadGateway, status)

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}
