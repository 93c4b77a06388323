package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"labsight/internal/domain"
)

func (d *documentStore) Create(_ context.Context, doc *domain.Document) error {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.s.docs[doc.ID] = cloneDocument(*doc)
	return nil
}

func (d *documentStore) Get(_ context.Context, id uuid.UUID) (*domain.Document, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	doc, ok := d.s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneDocument(doc)
	return &out, nil
}

func (d *documentStore) GetForOwner(_ context.Context, ownerID, id uuid.UUID) (*domain.Document, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	doc, ok := d.s.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	out := cloneDocument(doc)
	return &out, nil
}

func (d *documentStore) List(_ context.Context, ownerID uuid.UUID, offset, limit int) ([]domain.Document, int, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	owned := d.s.ownedLocked(ownerID)
	total := len(owned)

	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []domain.Document{}, total, nil
	}
	end := offset + limit
	if limit < 0 || end > total {
		end = total
	}
	return owned[offset:end], total, nil
}

func (d *documentStore) FindByChecksum(_ context.Context, ownerID uuid.UUID, checksum string) (*domain.Document, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	for _, doc := range d.s.ownedLocked(ownerID) {
		if doc.Checksum == checksum {
			out := doc
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ownedLocked returns clones of the owner's documents, newest first.
// Callers must hold at least a read lock.
func (s *Store) ownedLocked(ownerID uuid.UUID) []domain.Document {
	var owned []domain.Document
	for _, doc := range s.docs {
		if doc.OwnerID == ownerID {
			owned = append(owned, cloneDocument(doc))
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].ID.String() > owned[j].ID.String()
	})
	return owned
}

func (d *documentStore) UpdateStage(_ context.Context, id uuid.UUID, stage domain.ProcessingStage, progress int) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	doc, ok := d.s.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Stage = stage
	doc.Progress = progress
	doc.UpdatedAt = time.Now().UTC()
	d.s.docs[id] = doc
	return nil
}

func (d *documentStore) UpdateRawText(_ context.Context, id uuid.UUID, rawText string) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	doc, ok := d.s.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.RawText = &rawText
	doc.UpdatedAt = time.Now().UTC()
	d.s.docs[id] = doc
	return nil
}

// MarkError leaves stage and progress where the run stopped so the failure
// point stays visible to progress readers.
func (d *documentStore) MarkError(_ context.Context, id uuid.UUID, message string) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	doc, ok := d.s.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = domain.StatusError
	doc.ErrorMessage = &message
	doc.UpdatedAt = time.Now().UTC()
	d.s.docs[id] = doc
	return nil
}

func (d *documentStore) MarkComplete(_ context.Context, id uuid.UUID) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	doc, ok := d.s.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = domain.StatusComplete
	doc.Stage = domain.StageComplete
	doc.Progress = 100
	doc.ErrorMessage = nil
	doc.UpdatedAt = time.Now().UTC()
	d.s.docs[id] = doc
	return nil
}

func (d *documentStore) ResetForRetry(_ context.Context, id uuid.UUID) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	doc, ok := d.s.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = domain.StatusProcessing
	doc.Stage = domain.StageOCRExtraction
	doc.Progress = 0
	doc.ErrorMessage = nil
	doc.UpdatedAt = time.Now().UTC()
	d.s.docs[id] = doc
	return nil
}

func (d *documentStore) ListStaleQueued(_ context.Context, cutoff time.Time, limit int) ([]domain.Document, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	var stale []domain.Document
	for _, doc := range d.s.docs {
		if doc.Status == domain.StatusProcessing && doc.Stage == domain.StageQueued && doc.UpdatedAt.Before(cutoff) {
			stale = append(stale, cloneDocument(doc))
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].UpdatedAt.Before(stale[j].UpdatedAt)
	})
	if limit >= 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

// Delete removes the document along with its result and events, matching
// the cascades the postgres schema applies.
func (d *documentStore) Delete(_ context.Context, id uuid.UUID) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	if _, ok := d.s.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(d.s.docs, id)
	delete(d.s.results, id)
	delete(d.s.events, id)
	return nil
}

func (d *documentStore) SaveResult(_ context.Context, result *domain.AnalysisResult) error {
	now := time.Now().UTC()

	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	if _, ok := d.s.docs[result.DocumentID]; !ok {
		return domain.ErrNotFound
	}
	// Reruns keep the original created_at; only updated_at moves.
	if prior, ok := d.s.results[result.DocumentID]; ok {
		result.CreatedAt = prior.CreatedAt
	} else {
		result.CreatedAt = now
	}
	result.UpdatedAt = now
	d.s.results[result.DocumentID] = cloneResult(*result)
	return nil
}

func (d *documentStore) GetResult(_ context.Context, documentID uuid.UUID) (*domain.AnalysisResult, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	res, ok := d.s.results[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneResult(res)
	return &out, nil
}

func (d *documentStore) DeleteResult(_ context.Context, documentID uuid.UUID) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	delete(d.s.results, documentID)
	return nil
}
