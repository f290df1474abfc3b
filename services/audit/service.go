package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/upb/publish-guard/internal/observability"
	"github.com/upb/publish-guard/models"
	"github.com/upb/publish-guard/repositories"
)

// AuditEvent represents an event to be audited
type AuditEvent struct {
	Log *models.AuditLog
}

// AuditService handles asynchronous audit logging of guard decisions.
// Audit writes never influence a decision.
type AuditService struct {
	auditRepo   repositories.AuditRepository
	metrics     *observability.Metrics
	logger      *zap.Logger
	eventChan   chan *AuditEvent
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	stopped     bool
	mu          sync.Mutex
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repositories.AuditRepository, metrics *observability.Metrics, logger *zap.Logger, config Config) *AuditService {
	ctx, cancel := context.WithCancel(context.Background())

	return &AuditService{
		auditRepo:   auditRepo,
		metrics:     metrics,
		logger:      logger,
		eventChan:   make(chan *AuditEvent, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop gracefully stops the audit service.
// Waits for all pending events to be processed.
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("audit service not running")
	}
	s.stopped = true
	// no more events will be accepted
	close(s.eventChan)
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// LogEvent queues an event without blocking. A full buffer drops the event.
func (s *AuditService) LogEvent(event *AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return fmt.Errorf("audit service not running")
	}

	select {
	case s.eventChan <- event:
		return nil
	default:
		s.metrics.ObserveAuditDrop()
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(event.Log.Action)),
			zap.String("item_id", event.Log.ItemID.String()))
		return fmt.Errorf("audit event buffer full")
	}
}

// worker processes events from the channel
func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.processEvent(event); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(event.Log.Action)),
				zap.String("item_id", event.Log.ItemID.String()))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// processEvent processes a single audit event
func (s *AuditService) processEvent(event *AuditEvent) error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, event.Log); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started && !s.stopped,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

// LogDecision queues the audit record of one guard decision
func (s *AuditService) LogDecision(log *models.AuditLog) error {
	return s.LogEvent(&AuditEvent{Log: log})
}
