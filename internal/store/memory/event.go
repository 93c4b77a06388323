package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"labsight/internal/domain"
)

func (e *eventStore) Append(_ context.Context, event *domain.ProcessingEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now().UTC()

	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	e.s.events[event.DocumentID] = append(e.s.events[event.DocumentID], *event)
	return nil
}

func (e *eventStore) ListByDocument(_ context.Context, documentID uuid.UUID, limit int) ([]domain.ProcessingEvent, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	trail := e.s.events[documentID]
	out := make([]domain.ProcessingEvent, 0, len(trail))
	// Events are appended in order, so newest first means walking backwards.
	for i := len(trail) - 1; i >= 0; i-- {
		if limit >= 0 && len(out) >= limit {
			break
		}
		out = append(out, trail[i])
	}
	return out, nil
}

func (e *eventStore) DeleteByDocument(_ context.Context, documentID uuid.UUID) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	delete(e.s.events, documentID)
	return nil
}
