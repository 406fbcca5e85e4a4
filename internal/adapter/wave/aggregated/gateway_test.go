package aggregated

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/yourorg/wave-connector/internal/adapter/wave/client"
)

// fakeGateway stands in for the aggregated merchant API and counts calls per "METHOD path".
type fakeGateway struct {
	t      *testing.T
	server *httptest.Server

	mu        sync.Mutex
	calls     map[string]int
	merchants map[string]AggregatedMerchant
	lastBody  map[string]any

	// Overrides: when set, returned instead of the default behavior.
	getStatus    int
	getBody      string
	createStatus int
	createBody   string
	// failGets answers that many GETs with 503 before behaving normally.
	failGets int
}

func newFakeGateway(t *testing.T) *fakeGateway {
	g := &fakeGateway{
		t:         t,
		calls:     make(map[string]int),
		merchants: make(map[string]AggregatedMerchant),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/aggregated_merchants", g.create)
	mux.HandleFunc("GET /v1/aggregated_merchants", g.list)
	mux.HandleFunc("GET /v1/aggregated_merchants/{id}", g.get)
	mux.HandleFunc("PUT /v1/aggregated_merchants/{id}", g.update)
	mux.HandleFunc("DELETE /v1/aggregated_merchants/{id}", g.remove)
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.calls[r.Method+" "+r.URL.Path]++
		g.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(g.server.Close)
	return g
}

func (g *fakeGateway) client() *client.Client {
	return client.New(client.WithBaseURL(g.server.URL))
}

func (g *fakeGateway) count(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[key]
}

func (g *fakeGateway) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

func (g *fakeGateway) add(m AggregatedMerchant) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.merchants[m.ID] = m
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"code": "AGGREGATED_MERCHANT_NOT_FOUND", "message": "not found"})
}

func (g *fakeGateway) create(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	g.mu.Lock()
	g.lastBody = body
	status, override := g.createStatus, g.createBody
	g.mu.Unlock()
	if status != 0 {
		writeRaw(w, status, override)
		return
	}
	name, _ := body["name"].(string)
	m := AggregatedMerchant{
		ID:     "am-" + strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Name:   name,
		Status: "active",
	}
	m.BusinessType, _ = body["business_type"].(string)
	m.BusinessDescription, _ = body["business_description"].(string)
	g.add(m)
	writeJSON(w, http.StatusOK, m)
}

func (g *fakeGateway) get(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	status, override := g.getStatus, g.getBody
	if g.failGets > 0 {
		g.failGets--
		status, override = http.StatusServiceUnavailable, "unavailable"
	}
	m, ok := g.merchants[r.PathValue("id")]
	g.mu.Unlock()
	if status != 0 {
		writeRaw(w, status, override)
		return
	}
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (g *fakeGateway) update(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	m, ok := g.merchants[r.PathValue("id")]
	g.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRaw(w, http.StatusBadRequest, `{"message":"bad json"}`)
		return
	}
	if req.Name != nil {
		m.Name = *req.Name
	}
	if req.BusinessType != nil {
		if *req.BusinessType == "casino" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"code": "INVALID_BUSINESS_TYPE", "message": "unsupported business type"})
			return
		}
		m.BusinessType = *req.BusinessType
	}
	g.add(m)
	writeJSON(w, http.StatusOK, m)
}

func (g *fakeGateway) remove(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.merchants[r.PathValue("id")]; !ok {
		notFound(w)
		return
	}
	delete(g.merchants, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (g *fakeGateway) list(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limit := r.URL.Query().Get("limit")
	resp := ListResponse{Items: []AggregatedMerchant{{ID: "am-1", Name: "One"}}}
	if cursor == "" && limit == "1" {
		next := "c1"
		resp.PageInfo = PageInfo{HasNextPage: true, EndCursor: &next}
	}
	writeJSON(w, http.StatusOK, resp)
}
