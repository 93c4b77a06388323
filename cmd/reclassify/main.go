// Command reclassify recomputes the severity status of stored analysis
// markers after a change to the warning margin policy. Classification is
// deterministic, so rerunning it against the current configuration brings
// historical results in line with what a fresh run would produce.
// Usage: go run ./cmd/reclassify [-dry-run] [-margin 0.25]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"

	"labsight/internal/config"
	"labsight/internal/domain"
	"labsight/internal/marker"
	"labsight/internal/repository/postgres"
)

const batchSize = 500

func main() {
	dryRun := flag.Bool("dry-run", false, "report status changes without writing them")
	margin := flag.Float64("margin", 0, "warning margin override; 0 uses the configured value")
	flag.Parse()

	if err := run(*dryRun, *margin); err != nil {
		log.Fatal(err)
	}
}

type storedMarker struct {
	DocumentID     uuid.UUID           `db:"document_id"`
	Position       int                 `db:"position"`
	Name           string              `db:"name"`
	Value          string              `db:"value"`
	ReferenceRange string              `db:"reference_range"`
	Status         domain.MarkerStatus `db:"status"`
}

func run(dryRun bool, marginOverride float64) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	margin := cfg.Pipeline.WarningMargin
	if marginOverride > 0 {
		margin = marginOverride
	}
	classifier := marker.NewClassifier(margin)

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	offset := 0
	scanned := 0
	changed := 0

	for {
		var rows []storedMarker
		err := db.SelectContext(ctx, &rows,
			`SELECT document_id, position, name, value, reference_range, status
			 FROM analysis_markers
			 ORDER BY document_id, position
			 LIMIT $1 OFFSET $2`, batchSize, offset)
		if err != nil {
			return fmt.Errorf("querying markers at offset %d: %w", offset, err)
		}
		if len(rows) == 0 {
			break
		}

		for i := range rows {
			row := &rows[i]
			scanned++

			next := classifier.Classify(row.Value, row.ReferenceRange)
			if next == row.Status {
				continue
			}

			if dryRun {
				log.Printf("would change document %s marker %q: %s -> %s",
					row.DocumentID, row.Name, row.Status, next)
				changed++
				continue
			}

			_, err := db.ExecContext(ctx,
				`UPDATE analysis_markers SET status = $1 WHERE document_id = $2 AND position = $3`,
				next, row.DocumentID, row.Position)
			if err != nil {
				log.Printf("WARN: failed to update document %s marker %d: %v", row.DocumentID, row.Position, err)
				continue
			}
			changed++
		}

		if scanned > 0 && scanned%batchSize == 0 {
			log.Printf("Progress: %d markers scanned", scanned)
		}

		offset += len(rows)
	}

	verb := "updated"
	if dryRun {
		verb = "would update"
	}
	log.Printf("Reclassify complete (margin %.2f): %d markers scanned, %s %d", margin, scanned, verb, changed)
	return nil
}
