package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/amaxoft/portal-gateway/internal/events"
)

func TestAuditServicePersistsEvents(t *testing.T) {
	d := events.NewInMemoryDispatcher()
	repo := &fakeAudit{}
	svc := NewAuditService(d, repo, zap.NewNop(), 8)
	svc.RegisterHandlers()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	uid := "u-1"
	require.NoError(t, d.Publish(ctx, events.NewEvent(events.EventAccessDenied, "r1",
		events.Actor{UserID: &uid, Email: "ana@example.com"},
		events.AccessDeniedPayload{Path: "/dashboard", Method: "GET", Outcome: "redirect_purchase", Reason: "no_purchase"})))
	require.NoError(t, d.Publish(ctx, events.NewEvent(events.EventRateLimitExceeded, "r2",
		events.Actor{IPAddress: "1.2.3.4"},
		events.RateLimitExceededPayload{Key: "rate_limit:1.2.3.4:curl", Profile: "auth", RetryAfterSeconds: 1800})))

	assert.Eventually(t, func() bool { return len(repo.all()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	entries := repo.all()
	assert.Equal(t, "access_denied", entries[0].Action)
	assert.Equal(t, "route", entries[0].EntityType)
	assert.Equal(t, "/dashboard", *entries[0].EntityID)
	assert.Equal(t, "no_purchase", entries[0].Metadata["reason"])
	assert.Equal(t, "u-1", *entries[0].UserID)

	assert.Equal(t, "rate_limit_exceeded", entries[1].Action)
	assert.Equal(t, "auth", *entries[1].EntityID)
	assert.Equal(t, 1800, entries[1].Metadata["retryAfterSeconds"])
}

func TestAuditServiceDropsWhenFull(t *testing.T) {
	d := events.NewInMemoryDispatcher()
	svc := NewAuditService(d, &fakeAudit{}, zap.NewNop(), 1)
	svc.RegisterHandlers()

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Publish(context.Background(),
			events.NewEvent(events.EventLoginAttempt, "", events.Actor{}, events.LoginAttemptPayload{})))
	}
	assert.Equal(t, int64(2), svc.Dropped())
}

func TestAuditServiceDrainsOnShutdown(t *testing.T) {
	d := events.NewInMemoryDispatcher()
	repo := &fakeAudit{}
	svc := NewAuditService(d, repo, zap.NewNop(), 4)
	svc.RegisterHandlers()

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Publish(context.Background(),
			events.NewEvent(events.EventLoginAttempt, "", events.Actor{}, events.LoginAttemptPayload{Success: true})))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Run(ctx)
	assert.Len(t, repo.all(), 3)
}

func TestRegistrationEventBecomesUserEntry(t *testing.T) {
	uid := "u-7"
	entry := entryFromEvent(events.NewEvent(events.EventUserRegistered, "r7",
		events.Actor{UserID: &uid, Email: "new@example.com"},
		events.UserRegisteredPayload{UserID: uid, CustomID: "DI-004", Role: "DISCIPULADOR"}))

	assert.Equal(t, "user_registered", entry.Action)
	assert.Equal(t, "user", entry.EntityType)
	assert.Equal(t, "u-7", *entry.EntityID)
	assert.Equal(t, "DI-004", entry.Metadata["customId"])
	assert.Equal(t, "new@example.com", entry.Metadata["email"])
}
