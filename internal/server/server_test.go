package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/strata/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:             "0",
		Env:              "development",
		LogLevel:         "error",
		TenantHeader:     "X-Tenant",
		TenantResolution: config.ResolveByHeader,
		CentralDomains:   []string{"localhost"},
		PlanLimits:       config.DefaultPlanLimits(),
		SeedNewTenants:   false,
		RateLimitRPM:     100000,
	}
}

// newTestServer creates a server with in-memory storage
func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

func doJSON(s *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Host = "localhost"
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// createTenant registers a tenant through the central API
func createTenant(t *testing.T, s *Server, id, domain, plan string) {
	t.Helper()
	body := fmt.Sprintf(`{"id":%q,"domain":%q,"data":{"plan":%q}}`, id, domain, plan)
	w := doJSON(s, "POST", "/api/tenants", body, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 creating tenant, got %d: %s", w.Code, w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Health endpoint tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, "GET", "/health", "", nil)
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

	w := doJSON(s, "GET", "/health/live", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, "GET", "/health/ready", "", nil)
	// Server hasn't called Run() so ready is false
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 (not ready), got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Route registration tests
// ---------------------------------------------------------------------------

func TestCoreRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	routes := s.router.Routes()
	expected := []string{
		"GET:/health",
		"GET:/metrics",
		"GET:/ws",
		"GET:/api/tenants",
		"POST:/api/tenants",
		"GET:/api/tenants/:id",
		"DELETE:/api/tenants/:id",
		"GET:/api/tenant",
		"GET:/api/products",
		"POST:/api/products",
		"GET:/api/users",
		"POST:/api/users",
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
// Tenant lifecycle tests
// ---------------------------------------------------------------------------

func TestTenantRegistration(t *testing.T) {
	s := newTestServer(t)

	body := `{"id":"acme","domain":"acme.example.com","data":{"plan":"basic"}}`
	w := doJSON(s, "POST", "/api/tenants", body, nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["status"] != "success" {
		t.Errorf("Expected envelope status 'success', got %v", resp["status"])
	}
}

func TestTenantRegistration_DuplicateID(t *testing.T) {
	s := newTestServer(t)
	createTenant(t, s, "acme", "acme.example.com", "free")

	body := `{"id":"acme","domain":"other.example.com","data":{"plan":"free"}}`
	w := doJSON(s, "POST", "/api/tenants", body, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTenantDeletion_RemovesEverything(t *testing.T) {
	s := newTestServer(t)
	createTenant(t, s, "acme", "acme.example.com", "free")

	w := doJSON(s, "DELETE", "/api/tenants/acme", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(s, "GET", "/api/tenants/acme", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after deletion, got %d", w.Code)
	}

	// Tenant routes stop resolving too
	w = doJSON(s, "GET", "/api/products", "", map[string]string{"X-Tenant": "acme"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 resolving deleted tenant, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Tenant-scoped resource tests
// ---------------------------------------------------------------------------

func TestProductCRUDWithinTenant(t *testing.T) {
	s := newTestServer(t)
	createTenant(t, s, "acme", "acme.example.com", "basic")
	hdr := map[string]string{"X-Tenant": "acme"}

	w := doJSON(s, "POST", "/api/products", `{"name":"Widget","price":9.99}`, hdr)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Data.ID == "" {
		t.Fatal("Expected product id in response")
	}

	w = doJSON(s, "GET", "/api/products/"+resp.Data.ID, "", hdr)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	w = doJSON(s, "PUT", "/api/products/"+resp.Data.ID, `{"price":19.99}`, hdr)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(s, "DELETE", "/api/products/"+resp.Data.ID, "", hdr)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	w = doJSON(s, "GET", "/api/products/"+resp.Data.ID, "", hdr)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
}

func TestProductValidation(t *testing.T) {
	s := newTestServer(t)
	createTenant(t, s, "acme", "acme.example.com", "basic")
	hdr := map[string]string{"X-Tenant": "acme"}

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"price":9.99}`},
		{"missing price", `{"name":"Widget"}`},
		{"negative price", `{"name":"Widget","price":-1}`},
		{"name too long", `{"name":"This product name is way too long","price":9.99}`},
	}
	for _, tc := range cases {
		w := doJSON(s, "POST", "/api/products", tc.body, hdr)
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: expected 422, got %d: %s", tc.name, w.Code, w.Body.String())
		}
	}
}

func TestTenantIsolation(t *testing.T) {
	s := newTestServer(t)
	createTenant(t, s, "acme", "acme.example.com", "basic")
	createTenant(t, s, "globex", "globex.example.com", "basic")

	w := doJSON(s, "POST", "/api/products", `{"name":"Acme Widget","price":1}`,
		map[string]string{"X-Tenant": "acme"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	// The other tenant cannot see it
	w = doJSON(s, "GET", "/api/products/"+resp.Data.ID, "", map[string]string{"X-Tenant": "globex"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 across tenants, got %d", w.Code)
	}
}

func TestUserCRUDWithinTenant(t *testing.T) {
	s := newTestServer(t)
	createTenant(t, s, "acme", "acme.example.com", "basic")
	hdr := map[string]string{"X-Tenant": "acme"}

	w := doJSON(s, "POST", "/api/users", `{"name":"Ada","email":"ada@acme.example.com","password":"secret123"}`, hdr)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "secret123") || strings.Contains(w.Body.String(), "password_hash") {
		t.Error("Password material leaked in response")
	}

	w = doJSON(s, "GET", "/api/users", "", hdr)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Quota enforcement
// ---------------------------------------------------------------------------

func TestQuota_BasicPlanTwentyProducts(t *testing.T) {
	s := newTestServer(t)
	createTenant(t, s, "acme", "acme.example.com", "basic")
	hdr := map[string]string{"X-Tenant": "acme"}

	for i := 1; i <= 20; i++ {
		body := fmt.Sprintf(`{"name":"Product %d","price":1}`, i)
		w := doJSON(s, "POST", "/api/products", body, hdr)
		if w.Code != http.StatusCreated {
			t.Fatalf("Product %d: expected 201, got %d: %s", i, w.Code, w.Body.String())
		}
	}

	// 21st create is rejected with limit and count
	w := doJSON(s, "POST", "/api/products", `{"name":"One Too Many","price":1}`, hdr)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Limit int `json:"limit"`
			Count int `json:"count"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Data.Limit != 20 || resp.Data.Count != 20 {
		t.Errorf("Expected limit=20 count=20, got limit=%d count=%d", resp.Data.Limit, resp.Data.Count)
	}
}

func TestQuota_PlanMissingFromPolicyTable(t *testing.T) {
	cfg := testConfig()
	cfg.PlanLimits = map[string]int{"free": 5} // basic deliberately absent
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	createTenant(t, s, "acme", "acme.example.com", "basic")

	w := doJSON(s, "POST", "/api/products", `{"name":"Widget","price":1}`,
		map[string]string{"X-Tenant": "acme"})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for plan absent from policy table, got %d: %s", w.Code, w.Body.String())
	}
}

func TestQuota_DeletingFreesCapacity(t *testing.T) {
	s := newTestServer(t)

	body := `{"id":"tiny","domain":"tiny.example.com","data":{"plan":"free"}}`
	w := doJSON(s, "POST", "/api/tenants", body, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	hdr := map[string]string{"X-Tenant": "tiny"}

	var lastID string
	for i := 1; i <= 5; i++ {
		w := doJSON(s, "POST", "/api/products", fmt.Sprintf(`{"name":"P%d","price":1}`, i), hdr)
		if w.Code != http.StatusCreated {
			t.Fatalf("Product %d: expected 201, got %d", i, w.Code)
		}
		var resp struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}
		lastID = resp.Data.ID
	}

	w = doJSON(s, "POST", "/api/products", `{"name":"P6","price":1}`, hdr)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 at the limit, got %d", w.Code)
	}

	w = doJSON(s, "DELETE", "/api/products/"+lastID, "", hdr)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 deleting product, got %d", w.Code)
	}

	w = doJSON(s, "POST", "/api/products", `{"name":"P6","price":1}`, hdr)
	if w.Code != http.StatusCreated {
		t.Errorf("Expected 201 after freeing capacity, got %d: %s", w.Code, w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// 404 test
// ---------------------------------------------------------------------------

func TestNotFoundRoute(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, "GET", "/api/nonexistent", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
