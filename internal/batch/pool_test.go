package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"scrapeguard/pkg/logger"
	"scrapeguard/pkg/pipeline"
	"scrapeguard/pkg/ratelimit"
	"scrapeguard/pkg/storage"
)

// MockIssuer counts Generate calls and can fail or stall
type MockIssuer struct {
	delay   time.Duration
	err     error
	counter int32
}

func (m *MockIssuer) Generate(username string) (*pipeline.Bundle, error) {
	atomic.AddInt32(&m.counter, 1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	return &pipeline.Bundle{}, nil
}

func (m *MockIssuer) GetCount() int {
	return int(atomic.LoadInt32(&m.counter))
}

// MockStore records written files
type MockStore struct {
	mu      sync.Mutex
	files   map[string]bool
	saveErr error
}

func NewMockStore() *MockStore {
	return &MockStore{files: make(map[string]bool)}
}

func (m *MockStore) Exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files[name]
}

func (m *MockStore) WriteJSON(name string, v interface{}) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = true
	return nil
}

func (m *MockStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

func jobsFor(n int) []Job {
	jobs := make([]Job, n)
	for i := range jobs {
		name := fmt.Sprintf("user%d", i)
		jobs[i] = Job{Username: name, File: JobFile(name)}
	}
	return jobs
}

func TestWorkerPoolBasicFunctionality(t *testing.T) {
	issuer := &MockIssuer{delay: 5 * time.Millisecond}
	store := NewMockStore()
	pool := NewWorkerPool(3, issuer, store, ratelimit.NewTokenBucket(100, time.Second), logger.NewNopLogger())

	results := Run(context.Background(), pool, jobsFor(10))

	if len(results) != 10 {
		t.Fatalf("Expected 10 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Success || r.Error != nil {
			t.Errorf("Job %s failed: %v", r.Job.Username, r.Error)
		}
	}
	if issuer.GetCount() != 10 || store.Count() != 10 {
		t.Errorf("Expected 10 codes issued and saved, got %d and %d", issuer.GetCount(), store.Count())
	}
}

func TestWorkerPoolSkipsExisting(t *testing.T) {
	issuer := &MockIssuer{}
	store := NewMockStore()
	store.files[JobFile("user0")] = true

	pool := NewWorkerPool(2, issuer, store, nil, logger.NewNopLogger())
	results := Run(context.Background(), pool, jobsFor(3))

	skipped := 0
	for _, r := range results {
		if r.Skipped {
			skipped++
		}
	}
	if skipped != 1 || issuer.GetCount() != 2 {
		t.Errorf("Expected 1 skipped and 2 issued, got %d and %d", skipped, issuer.GetCount())
	}
}

func TestWorkerPoolOverwrite(t *testing.T) {
	issuer := &MockIssuer{}
	store := NewMockStore()
	store.files[JobFile("user0")] = true

	pool := NewWorkerPool(2, issuer, store, nil, logger.NewNopLogger())
	pool.SetOverwrite(true)
	Run(context.Background(), pool, jobsFor(3))

	if issuer.GetCount() != 3 {
		t.Errorf("Expected every code to be reissued, got %d", issuer.GetCount())
	}
}

func TestWorkerPoolErrors(t *testing.T) {
	tests := []struct {
		name   string
		issuer *MockIssuer
		store  *MockStore
	}{
		{"generate error", &MockIssuer{err: errors.New("cipher failure")}, NewMockStore()},
		{"save error", &MockIssuer{}, &MockStore{files: map[string]bool{}, saveErr: errors.New("disk full")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := logger.NewTestLogger()
			pool := NewWorkerPool(2, tt.issuer, tt.store, nil, tl)
			results := Run(context.Background(), pool, jobsFor(4))

			for _, r := range results {
				if r.Success || r.Error == nil {
					t.Errorf("Expected job %s to fail", r.Job.Username)
				}
			}
			if !tl.HasError() {
				t.Error("Expected failures to be logged")
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	issuer := &MockIssuer{delay: 20 * time.Millisecond}
	pool := NewWorkerPool(1, issuer, NewMockStore(), nil, logger.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan []Result)
	go func() { done <- Run(ctx, pool, jobsFor(100)) }()

	select {
	case results := <-done:
		if len(results) >= 100 {
			t.Errorf("Expected cancellation to abandon jobs, got %d results", len(results))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestWithRealManager(t *testing.T) {
	keys, err := pipeline.GenerateKeySet()
	if err != nil {
		t.Fatal(err)
	}
	p, err := pipeline.New(keys)
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	issuer := issuerFunc(func(username string) (*pipeline.Bundle, error) {
		return p.Encrypt("ADMIN_CODE_" + username)
	})
	pool := NewWorkerPool(4, issuer, store, nil, logger.NewNopLogger())
	Run(context.Background(), pool, jobsFor(6))

	for _, job := range jobsFor(6) {
		data, err := store.ReadFile(job.File)
		if err != nil {
			t.Fatalf("Missing bundle for %s: %v", job.Username, err)
		}
		b, err := pipeline.ParseBundle(data)
		if err != nil {
			t.Fatalf("Unreadable bundle for %s: %v", job.Username, err)
		}
		pt, err := p.Decrypt(b)
		if err != nil || pt != "ADMIN_CODE_"+job.Username {
			t.Errorf("Bundle for %s decrypted to %q, %v", job.Username, pt, err)
		}
	}
}

type issuerFunc func(string) (*pipeline.Bundle, error)

func (f issuerFunc) Generate(username string) (*pipeline.Bundle, error) { return f(username) }

func TestJobFile(t *testing.T) {
	tests := map[string]string{
		"alice":      "admin_code_alice.json",
		"../etc/pwd": "admin_code____etc_pwd.json",
		"bob smith":  "admin_code_bob_smith.json",
	}
	for in, want := range tests {
		if got := JobFile(in); got != want {
			t.Errorf("JobFile(%q) = %q, want %q", in, got, want)
		}
	}
}
