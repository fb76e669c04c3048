package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/amaxoft/portal-gateway/internal/domain"
	"github.com/amaxoft/portal-gateway/internal/repository"
)

type fakeUsers struct {
	byID    map[string]*domain.User
	seq     map[string]int
	created []domain.NewUser
}

func newFakeUsers(users ...*domain.User) *fakeUsers {
	f := &fakeUsers{byID: make(map[string]*domain.User), seq: make(map[string]int)}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range f.byID {
		if u.ID == id || (u.CustomID != "" && u.CustomID == id) {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUsers) List(_ context.Context, filter repository.UserFilter) ([]domain.User, int, error) {
	var out []domain.User
	for _, u := range f.byID {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (f *fakeUsers) Create(_ context.Context, nu domain.NewUser) (*domain.User, error) {
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, nu.Email) {
			return nil, repository.ErrEmailTaken
		}
	}
	f.created = append(f.created, nu)
	prefix := nu.Role.CustomIDPrefix()
	f.seq[prefix]++
	hash := nu.PasswordHash
	name := nu.Name
	u := &domain.User{
		ID:           fmt.Sprintf("new-%d", len(f.created)),
		CustomID:     domain.FormatCustomID(prefix, f.seq[prefix]),
		Email:        nu.Email,
		Name:         &name,
		PasswordHash: &hash,
		Role:         nu.Role,
		IsActive:     true,
	}
	f.byID[u.ID] = u
	return u, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (f *fakeAudit) Insert(_ context.Context, entry *domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAudit) all() []domain.AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AuditEntry(nil), f.entries...)
}
