package dedupe

import (
	"context"
	"fmt"

	"github.com/ajitpratap0/personroster/internal/metrics"
)

// deleteChunkSize bounds the id list passed to the store per round so
// large deletions stay within backend parameter limits.
const deleteChunkSize = 500

// DeletePersonsCascade removes the persons and everything that hangs
// off them: document links, connections, and their presence in
// timeline events. Missing ids are skipped. Returns the number of
// person rows actually deleted.
func (e *Engine) DeletePersonsCascade(ctx context.Context, ids []int64) (int64, error) {
	var deleted int64
	for start := 0; start < len(ids); start += deleteChunkSize {
		end := start + deleteChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		if _, err := e.store.DeleteConnectionsFor(ctx, chunk); err != nil {
			return deleted, fmt.Errorf("deleting connections: %w", err)
		}
		if _, err := e.store.DeletePersonDocumentsFor(ctx, chunk); err != nil {
			return deleted, fmt.Errorf("deleting document links: %w", err)
		}
		if err := e.stripFromEvents(ctx, chunk); err != nil {
			return deleted, err
		}
		n, err := e.store.DeletePersons(ctx, chunk)
		if err != nil {
			return deleted, fmt.Errorf("deleting persons: %w", err)
		}
		deleted += n
	}
	metrics.Add(metrics.DeletesTotal, deleted)
	return deleted, nil
}

func (e *Engine) stripFromEvents(ctx context.Context, ids []int64) error {
	gone := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		gone[id] = struct{}{}
	}
	events, err := e.store.TimelineEventsFor(ctx, ids)
	if err != nil {
		return fmt.Errorf("loading events: %w", err)
	}
	for _, ev := range events {
		kept := make([]int64, 0, len(ev.PersonIDs))
		for _, pid := range ev.PersonIDs {
			if _, ok := gone[pid]; ok {
				continue
			}
			kept = append(kept, pid)
		}
		if len(kept) == len(ev.PersonIDs) {
			continue
		}
		if err := e.store.UpdateTimelineEventPersons(ctx, ev.ID, kept); err != nil {
			return fmt.Errorf("updating event %d: %w", ev.ID, err)
		}
	}
	return nil
}
