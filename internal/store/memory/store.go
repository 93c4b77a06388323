// Package memory is an in-process store used by tests and local development.
// One Store backs every persistence port the service needs, guarded by a
// single RWMutex; values are cloned on the way in and out so callers can
// never mutate stored state through a returned pointer.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"labsight/internal/domain"
	"labsight/internal/port"
)

// Store holds all persisted state in maps. The zero value is not usable;
// construct with New.
type Store struct {
	mu sync.RWMutex

	users        map[uuid.UUID]domain.User
	usersByEmail map[string]uuid.UUID
	docs         map[uuid.UUID]domain.Document
	results      map[uuid.UUID]domain.AnalysisResult
	events       map[uuid.UUID][]domain.ProcessingEvent
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:        make(map[uuid.UUID]domain.User),
		usersByEmail: make(map[string]uuid.UUID),
		docs:         make(map[uuid.UUID]domain.Document),
		results:      make(map[uuid.UUID]domain.AnalysisResult),
		events:       make(map[uuid.UUID][]domain.ProcessingEvent),
	}
}

// Documents exposes the document side of the store.
func (s *Store) Documents() port.DocumentStore { return &documentStore{s} }

// Users exposes the account side of the store.
func (s *Store) Users() port.UserStore { return &userStore{s} }

// Events exposes the processing audit trail.
func (s *Store) Events() port.EventStore { return &eventStore{s} }

// Stats exposes dashboard aggregation over the store's documents.
func (s *Store) Stats() port.StatsStore { return &statsStore{s} }

// PingContext always succeeds; it lets the readiness probe treat the
// in-process store like any other backend.
func (s *Store) PingContext(_ context.Context) error { return nil }

type documentStore struct{ s *Store }

type userStore struct{ s *Store }

type eventStore struct{ s *Store }

type statsStore struct{ s *Store }

func cloneDocument(doc domain.Document) domain.Document {
	if doc.RawText != nil {
		text := *doc.RawText
		doc.RawText = &text
	}
	if doc.ErrorMessage != nil {
		msg := *doc.ErrorMessage
		doc.ErrorMessage = &msg
	}
	return doc
}

func cloneResult(res domain.AnalysisResult) domain.AnalysisResult {
	res.Markers = append([]domain.AnalyzedMarker(nil), res.Markers...)
	res.KeyFindings = append([]string(nil), res.KeyFindings...)
	res.Recommendations = append([]string(nil), res.Recommendations...)
	return res
}
