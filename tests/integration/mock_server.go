package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
)

// MockLicenseServer simulates the remote API key check
type MockLicenseServer struct {
	server        *httptest.Server
	requestCount  int32
	rateLimitHits int32
	mu            sync.RWMutex
	accounts      map[string]credentials // username -> keys
	failNext      []int                  // status codes to return before answering
}

type credentials struct {
	publicKey string
	secretKey string
}

// NewMockLicenseServer creates a new mock license server
func NewMockLicenseServer() *MockLicenseServer {
	m := &MockLicenseServer{
		accounts: make(map[string]credentials),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/check-keys", m.handleCheck)

	m.server = httptest.NewServer(mux)
	return m
}

// handleCheck answers a key check the way the production server does
func (m *MockLicenseServer) handleCheck(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if code := m.nextFailure(); code > 0 {
		if code == http.StatusTooManyRequests {
			atomic.AddInt32(&m.rateLimitHits, 1)
			w.Header().Set("Retry-After", "1")
		}
		w.WriteHeader(code)
		return
	}

	var req struct {
		PublicKey string `json:"publicKey"`
		SecretKey string `json:"secretKey"`
		Username  string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "Invalid request"})
		return
	}

	m.mu.RLock()
	want, ok := m.accounts[req.Username]
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok || want.publicKey != req.PublicKey || want.secretKey != req.SecretKey {
		json.NewEncoder(w).Encode(map[string]string{"message": "Invalid keys"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "Keys are valid"})
}

func (m *MockLicenseServer) nextFailure() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.failNext) == 0 {
		return 0
	}
	code := m.failNext[0]
	m.failNext = m.failNext[1:]
	return code
}

// AddAccount registers a valid key pair for username
func (m *MockLicenseServer) AddAccount(username, publicKey, secretKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[username] = credentials{publicKey: publicKey, secretKey: secretKey}
}

// FailNext makes the next requests fail with the given status codes, in order
func (m *MockLicenseServer) FailNext(codes ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = append(m.failNext, codes...)
}

// GetURL returns the check endpoint URL
func (m *MockLicenseServer) GetURL() string {
	return m.server.URL + "/api/check-keys"
}

// GetRequestCount returns the total number of requests received
func (m *MockLicenseServer) GetRequestCount() int {
	return int(atomic.LoadInt32(&m.requestCount))
}

// GetRateLimitHits returns the number of 429 responses sent
func (m *MockLicenseServer) GetRateLimitHits() int {
	return int(atomic.LoadInt32(&m.rateLimitHits))
}

// ResetCounters resets all counters
func (m *MockLicenseServer) ResetCounters() {
	atomic.StoreInt32(&m.requestCount, 0)
	atomic.StoreInt32(&m.rateLimitHits, 0)
}

// Close shuts down the mock server
func (m *MockLicenseServer) Close() {
	m.server.Close()
}
