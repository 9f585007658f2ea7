// Package batch issues admin codes for many usernames with a pool of
// workers. Each username gets its own bundle file.
package batch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"scrapeguard/pkg/logger"
	"scrapeguard/pkg/pipeline"
	"scrapeguard/pkg/ratelimit"
)

// Job represents one admin code to issue
type Job struct {
	Username string
	File     string
}

// Result represents the result of a job
type Result struct {
	Job      Job
	Success  bool
	Skipped  bool
	Error    error
	Duration time.Duration
}

// Issuer builds admin code bundles
type Issuer interface {
	Generate(username string) (*pipeline.Bundle, error)
}

// CodeStore persists bundles
type CodeStore interface {
	Exists(name string) bool
	WriteJSON(name string, v interface{}) error
}

// WorkerPool manages concurrent issuing workers
type WorkerPool struct {
	numWorkers  int
	overwrite   bool
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	issuer      Issuer
	store       CodeStore
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

// NewWorkerPool creates a new worker pool. rateLimiter may be nil.
func NewWorkerPool(
	numWorkers int,
	issuer Issuer,
	store CodeStore,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.GetLogger()
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		issuer:      issuer,
		store:       store,
		rateLimiter: rateLimiter,
		logger:      log.WithField("component", "batch"),
	}
}

// SetOverwrite replaces existing bundle files instead of skipping them
func (wp *WorkerPool) SetOverwrite(overwrite bool) {
	wp.overwrite = overwrite
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() {
	wp.logger.InfoWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop waits for queued jobs to finish and closes the result channel
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.Info("Worker pool stopped")
}

// Cancel abandons queued jobs. Stop must still be called.
func (wp *WorkerPool) Cancel() {
	wp.cancel()
}

// Submit adds a job to the queue
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the result channel
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			return
		default:
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}
	fields := map[string]interface{}{
		"worker_id": workerID,
		"username":  job.Username,
		"file":      job.File,
	}

	if !wp.overwrite && wp.store.Exists(job.File) {
		wp.logger.DebugWithFields("Admin code already issued", fields)
		result.Success = true
		result.Skipped = true
		result.Duration = time.Since(start)
		return result
	}

	if wp.rateLimiter != nil {
		if err := wp.rateLimiter.Wait(wp.ctx); err != nil {
			result.Error = err
			result.Duration = time.Since(start)
			return result
		}
	}

	bundle, err := wp.issuer.Generate(job.Username)
	if err != nil {
		result.Error = fmt.Errorf("generate failed: %w", err)
		result.Duration = time.Since(start)
		wp.logger.WithError(err).ErrorWithFields("Worker failed to generate admin code", fields)
		return result
	}

	if err := wp.store.WriteJSON(job.File, bundle); err != nil {
		result.Error = fmt.Errorf("save failed: %w", err)
		result.Duration = time.Since(start)
		wp.logger.WithError(err).ErrorWithFields("Worker failed to save admin code", fields)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	fields["duration"] = result.Duration
	wp.logger.DebugWithFields("Admin code issued", fields)
	return result
}

// Run issues a code for every job and returns the results in completion
// order. Cancelling ctx abandons jobs not yet started.
func Run(ctx context.Context, wp *WorkerPool, jobs []Job) []Result {
	wp.Start()

	go func() {
		select {
		case <-ctx.Done():
			wp.Cancel()
		case <-wp.ctx.Done():
		}
	}()

	go func() {
		defer wp.Stop()
		for _, job := range jobs {
			if err := wp.Submit(job); err != nil {
				return
			}
		}
	}()

	results := make([]Result, 0, len(jobs))
	for r := range wp.Results() {
		results = append(results, r)
	}
	return results
}

// JobFile is the default bundle file name for username. Characters that are
// unsafe in file names become underscores.
func JobFile(username string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, username)
	return "admin_code_" + safe + ".json"
}
