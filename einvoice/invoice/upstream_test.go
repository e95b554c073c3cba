package invoice

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alapierre/go-einvoice-client/einvoice"
	"github.com/alapierre/go-einvoice-client/einvoice/api"
)

// fakeUpstream minimal stand-in for the tax service REST API
type fakeUpstream struct {
	mu sync.Mutex

	buyerCount    int
	supplierCount int

	// failListAt offset answered with failStatus
	failListAt int
	failStatus int

	countCalls []string
	listCalls  []listRequest
	paths      []string

	handlers map[string]http.HandlerFunc
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{failListAt: -1, handlers: map[string]http.HandlerFunc{}}
}

func (f *fakeUpstream) start(t *testing.T) *api.Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return api.New(einvoice.Test, api.WithBaseURL(srv.URL))
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.mu.Unlock()

	if h, ok := f.handlers[r.URL.Path]; ok {
		h(w, r)
		return
	}

	body, _ := io.ReadAll(r.Body)
	switch r.URL.Path {
	case CountPath:
		var req struct {
			Payload countRequest `json:"payload"`
		}
		_ = json.Unmarshal(body, &req)
		f.mu.Lock()
		f.countCalls = append(f.countCalls, string(req.Payload.Condition))
		f.mu.Unlock()
		writeOK(w, f.countFor(req.Payload.Condition))

	case ListPath:
		var req struct {
			Payload listRequest `json:"payload"`
		}
		_ = json.Unmarshal(body, &req)
		f.mu.Lock()
		f.listCalls = append(f.listCalls, req.Payload)
		f.mu.Unlock()

		if req.Payload.PageOffset == f.failListAt {
			w.WriteHeader(f.failStatus)
			return
		}
		total := f.countFor(req.Payload.Condition)
		n := min(req.Payload.PageLimit, total-req.Payload.PageOffset)
		page := make([]map[string]any, 0, n)
		for i := 0; i < n; i++ {
			page = append(page, map[string]any{
				"id":           fmt.Sprintf("inv-%d", req.Payload.PageOffset+i),
				"type":         "GOODS",
				"status":       "ISSUED",
				"supplierTin":  "99999999",
				"buyerTin":     "01234567",
				"issuedAt":     "2025-01-15T10:00:00Z",
				"totalAmount":  "1000.50",
				"totalVat":     200.1,
				"totalWithVat": "1200.60",
			})
		}
		writeOK(w, page)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeUpstream) countFor(c Condition) int {
	if strings.HasPrefix(string(c), string(Buyer)) {
		return f.buyerCount
	}
	return f.supplierCount
}

func writeOK(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "payload": payload})
}
