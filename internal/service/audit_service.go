package service

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/amaxoft/portal-gateway/internal/domain"
	"github.com/amaxoft/portal-gateway/internal/events"
	"github.com/amaxoft/portal-gateway/internal/repository"
)

// DefaultAuditBuffer is the queue depth between publishers and the writer.
const DefaultAuditBuffer = 256

const auditDrainTimeout = 5 * time.Second

// AuditService turns gateway events into audit log rows. Publishing never
// blocks: events are queued and written by Run on its own goroutine.
type AuditService struct {
	dispatcher events.Dispatcher
	repo       repository.AuditRepository
	logger     *zap.Logger
	queue      chan domain.AuditEntry
	dropped    atomic.Int64
}

// NewAuditService creates the service. A nil repo logs entries instead of
// persisting them.
func NewAuditService(dispatcher events.Dispatcher, repo repository.AuditRepository, logger *zap.Logger, buffer int) *AuditService {
	if buffer <= 0 {
		buffer = DefaultAuditBuffer
	}
	return &AuditService{
		dispatcher: dispatcher,
		repo:       repo,
		logger:     logger.Named("audit"),
		queue:      make(chan domain.AuditEntry, buffer),
	}
}

// RegisterHandlers subscribes to the audited event types.
func (s *AuditService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventLoginAttempt, s.enqueue)
	s.dispatcher.Subscribe(events.EventAccessDenied, s.enqueue)
	s.dispatcher.Subscribe(events.EventRateLimitExceeded, s.enqueue)
	s.dispatcher.Subscribe(events.EventUserRegistered, s.enqueue)
}

// Dropped returns how many entries were discarded because the queue was full.
func (s *AuditService) Dropped() int64 {
	return s.dropped.Load()
}

func (s *AuditService) enqueue(_ context.Context, event events.Event) error {
	entry := entryFromEvent(event)
	select {
	case s.queue <- entry:
	default:
		s.dropped.Add(1)
		s.logger.Warn("audit queue full; dropping entry",
			zap.String("action", entry.Action), zap.String("request_id", event.RequestID))
	}
	return nil
}

// Run writes queued entries until ctx is cancelled, then drains what is
// left with a short deadline.
func (s *AuditService) Run(ctx context.Context) {
	for {
		select {
		case entry := <-s.queue:
			s.write(ctx, entry)
		case <-ctx.Done():
			s.drain()
			return
		}
	}
}

func (s *AuditService) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), auditDrainTimeout)
	defer cancel()
	for {
		select {
		case entry := <-s.queue:
			s.write(ctx, entry)
		default:
			return
		}
	}
}

func (s *AuditService) write(ctx context.Context, entry domain.AuditEntry) {
	if s.repo == nil {
		s.logger.Info("audit", zap.String("action", entry.Action), zap.Any("metadata", entry.Metadata))
		return
	}
	if err := s.repo.Insert(ctx, &entry); err != nil {
		s.logger.Error("persist audit entry", zap.String("action", entry.Action), zap.Error(err))
	}
}

func entryFromEvent(event events.Event) domain.AuditEntry {
	entry := domain.AuditEntry{
		ID:         event.ID,
		UserID:     event.Actor.UserID,
		Action:     string(event.Type),
		EntityType: "auth",
		IPAddress:  event.Actor.IPAddress,
		UserAgent:  event.Actor.UserAgent,
		Timestamp:  event.Timestamp,
		Metadata: map[string]any{
			"requestId": event.RequestID,
		},
	}
	if event.Actor.Email != "" {
		entry.Metadata["email"] = event.Actor.Email
	}

	switch p := event.Payload.(type) {
	case events.LoginAttemptPayload:
		entry.EntityType = "session"
		entry.Metadata["success"] = p.Success
		if p.Reason != "" {
			entry.Metadata["reason"] = p.Reason
		}
	case events.AccessDeniedPayload:
		entry.EntityType = "route"
		path := p.Path
		entry.EntityID = &path
		entry.Metadata["method"] = p.Method
		entry.Metadata["outcome"] = p.Outcome
		entry.Metadata["reason"] = p.Reason
	case events.RateLimitExceededPayload:
		entry.EntityType = "rate_limit"
		profile := p.Profile
		entry.EntityID = &profile
		entry.Metadata["key"] = p.Key
		entry.Metadata["retryAfterSeconds"] = p.RetryAfterSeconds
	case events.UserRegisteredPayload:
		entry.EntityType = "user"
		id := p.UserID
		entry.EntityID = &id
		entry.Metadata["customId"] = p.CustomID
		entry.Metadata["role"] = p.Role
	}
	return entry
}
