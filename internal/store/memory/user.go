package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"labsight/internal/domain"
)

func (u *userStore) Create(_ context.Context, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	if _, ok := u.s.usersByEmail[user.Email]; ok {
		return domain.ErrDuplicateEmail
	}
	u.s.users[user.ID] = *user
	u.s.usersByEmail[user.Email] = user.ID
	return nil
}

func (u *userStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	user, ok := u.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &user, nil
}

func (u *userStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	id, ok := u.s.usersByEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	user := u.s.users[id]
	return &user, nil
}
