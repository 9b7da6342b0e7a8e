package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Olisehgenesis/lait/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testOwner = "acct_owner"

// testConfig returns a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:         "0",
		Env:          "development",
		LogLevel:     "error",
		OwnerAddress: testOwner,
		RefundWindow: 1,
		ExpiryGrace:  1,
		MaxMetadata:  4096,
	}
}

// newTestServer creates an in-memory server
func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Invalid test config: %v", err)
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

// ---------------------------------------------------------------------------
// Health endpoint tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}
}

func TestLivenessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/live", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/ready", nil)
	s.router.ServeHTTP(w, req)

	// Server hasn't called Run() so ready is false
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 (not ready), got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Route registration tests
// ---------------------------------------------------------------------------

func TestOrderRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	routes := s.router.Routes()
	orderRoutes := map[string]bool{
		"POST:/v1/orders":                  false,
		"GET:/v1/orders":                   false,
		"GET:/v1/orders/:id":               false,
		"POST:/v1/orders/:id/approve":      false,
		"POST:/v1/orders/:id/fill":         false,
		"POST:/v1/orders/:id/refund":       false,
		"POST:/v1/orders/:id/expire":       false,
		"PUT:/v1/orders/:id/metadata":      false,
		"DELETE:/v1/orders/:id":            false,
		"GET:/v1/accounts/:address/orders": false,
		"GET:/v1/escrow":                   false,
	}

	for _, route := range routes {
		key := route.Method + ":" + route.Path
		if _, ok := orderRoutes[key]; ok {
			orderRoutes[key] = true
		}
	}

	for route, found := range orderRoutes {
		if !found {
			t.Errorf("Order route %s not registered", route)
		}
	}
}

func TestCoreRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	routes := s.router.Routes()
	expected := []string{
		"GET:/health",
		"GET:/health/live",
		"GET:/health/ready",
		"GET:/metrics",
		"GET:/ws",
		"GET:/v1/admins",
		"POST:/v1/admins",
		"GET:/v1/assets",
		"GET:/v1/fees",
		"GET:/v1/rates",
		"GET:/v1/audit",
		"GET:/v1/policy",
	}

	routeSet := make(map[string]bool)
	for _, route := range routes {
		routeSet[route.Method+":"+route.Path] = true
	}

	for _, e := range expected {
		if !routeSet[e] {
			t.Errorf("Core route %s not registered", e)
		}
	}
}

// ---------------------------------------------------------------------------
// Identity enforcement tests
// ---------------------------------------------------------------------------

func TestMutationRequiresIdentity(t *testing.T) {
	s := newTestServer(t)

	body := `{"direction":"BUY","asset":"native","amount":100,"fiatCurrency":"USD","fiatAmount":100}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without X-Account, got %d: %s", w.Code, w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// End-to-end order flow
// ---------------------------------------------------------------------------

func TestOrderLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	account := "acct_buyer"

	// Fund and pre-authorize via the demo bank
	s.Bank().Credit(account, "native", 1000)
	s.Bank().Approve(account, "native", 1000)

	// Create a BUY order
	body := `{"direction":"BUY","asset":"native","amount":500,"fiatCurrency":"USD","fiatAmount":250}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Account", account)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Create: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created struct {
		Order struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"order"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to parse create response: %v", err)
	}
	if created.Order.Status != "pending" {
		t.Errorf("Expected pending order, got %s", created.Order.Status)
	}

	// Escrow reflects the locked amount
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/v1/escrow", nil)
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Escrow: expected 200, got %d", w.Code)
	}
	var escrow struct {
		Escrow map[string]int64 `json:"escrow"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &escrow); err != nil {
		t.Fatalf("Failed to parse escrow response: %v", err)
	}
	if escrow.Escrow["native"] != 500 {
		t.Errorf("Expected escrow 500, got %d", escrow.Escrow["native"])
	}

	// Fill as the owner (owner carries all capabilities)
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/v1/orders/"+created.Order.ID+"/fill", strings.NewReader(`{"notes":"wire settled"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Account", testOwner)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Fill: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// A second fill is rejected
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/v1/orders/"+created.Order.ID+"/fill", nil)
	req.Header.Set("X-Account", testOwner)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Double fill: expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// 404 test
// ---------------------------------------------------------------------------

func TestNotFoundRoute(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/nonexistent", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
