package memory

import (
	"context"

	"github.com/google/uuid"

	"labsight/internal/domain"
)

const recentUploadsLimit = 5

func (st *statsStore) GetOverview(_ context.Context, ownerID uuid.UUID) (*domain.StatsOverview, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	overview := &domain.StatsOverview{
		ByStatus: map[domain.ProcessingStatus]int{
			domain.StatusProcessing: 0,
			domain.StatusComplete:   0,
			domain.StatusError:      0,
		},
		MarkersByStatus: make(map[domain.MarkerStatus]int, len(domain.MarkerStatuses)),
	}
	for _, status := range domain.MarkerStatuses {
		overview.MarkersByStatus[status] = 0
	}

	owned := st.s.ownedLocked(ownerID)
	overview.TotalDocuments = len(owned)
	for _, doc := range owned {
		overview.ByStatus[doc.Status]++
		if res, ok := st.s.results[doc.ID]; ok {
			for _, m := range res.Markers {
				overview.MarkersByStatus[m.Status]++
			}
		}
	}

	if len(owned) > recentUploadsLimit {
		owned = owned[:recentUploadsLimit]
	}
	overview.RecentUploads = owned

	return overview, nil
}
