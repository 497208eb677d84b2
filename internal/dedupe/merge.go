package dedupe

import (
	"context"
	"errors"
	"fmt"

	"github.com/ajitpratap0/personroster/internal/metrics"
	"github.com/ajitpratap0/personroster/internal/models"
	"github.com/ajitpratap0/personroster/internal/store"
)

// mergeAliases folds names into the canonical's alias list: the
// canonical's own name is excluded, duplicates are dropped, and the
// total is capped at MaxAliases with overflow silently discarded.
func mergeAliases(canonical *models.Person, names []string) []string {
	aliases := canonical.Aliases
	for _, name := range names {
		if name == "" || name == canonical.Name || hasName(aliases, name) {
			continue
		}
		if len(aliases) >= models.MaxAliases {
			break
		}
		aliases = append(aliases, name)
	}
	return aliases
}

func hasName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// MergePersonGroup absorbs the duplicate persons into the canonical as
// one logical unit: aliases are folded in, document links and
// connections are repointed with duplicates collapsed, timeline events
// are rewritten, the duplicate rows are deleted, and the canonical's
// derived counts are recomputed. Re-running with already-merged
// duplicates is a no-op, not an error.
func (e *Engine) MergePersonGroup(ctx context.Context, canonicalID int64, duplicateIDs []int64, allNames []string) error {
	canonical, err := e.store.GetPerson(ctx, canonicalID)
	if err != nil {
		return fmt.Errorf("loading canonical %d: %w", canonicalID, err)
	}

	var dupIDs []int64
	for _, id := range duplicateIDs {
		if id == canonicalID {
			continue
		}
		if _, err := e.store.GetPerson(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return fmt.Errorf("checking duplicate %d: %w", id, err)
		}
		dupIDs = append(dupIDs, id)
	}
	if len(dupIDs) == 0 {
		return nil
	}

	canonical.Aliases = mergeAliases(canonical, allNames)

	if err := e.repointDocuments(ctx, canonicalID, dupIDs); err != nil {
		return err
	}
	if err := e.repointConnections(ctx, canonicalID, dupIDs); err != nil {
		return err
	}
	if err := e.rewriteEvents(ctx, canonicalID, dupIDs); err != nil {
		return err
	}

	// Safety net: any link missed above must not outlive its person.
	if _, err := e.store.DeletePersonDocumentsFor(ctx, dupIDs); err != nil {
		return fmt.Errorf("clearing duplicate document links: %w", err)
	}
	if _, err := e.store.DeletePersons(ctx, dupIDs); err != nil {
		return fmt.Errorf("deleting duplicates: %w", err)
	}

	docCount, err := e.store.CountPersonDocuments(ctx, canonicalID)
	if err != nil {
		return fmt.Errorf("recounting documents: %w", err)
	}
	connCount, err := e.store.CountConnections(ctx, canonicalID)
	if err != nil {
		return fmt.Errorf("recounting connections: %w", err)
	}
	canonical.DocumentCount = docCount
	canonical.ConnectionCount = connCount
	if err := e.store.UpdatePerson(ctx, *canonical); err != nil {
		return fmt.Errorf("updating canonical: %w", err)
	}

	metrics.Inc(metrics.MergesTotal)
	e.logger.Debug("merged person group",
		"canonical", canonical.Name, "canonical_id", canonicalID, "duplicates", len(dupIDs))
	return nil
}

// repointDocuments moves the duplicates' mention links to the canonical,
// keeping one row per (person, document) pair.
func (e *Engine) repointDocuments(ctx context.Context, canonicalID int64, dupIDs []int64) error {
	canonicalLinks, err := e.store.PersonDocumentsFor(ctx, []int64{canonicalID})
	if err != nil {
		return fmt.Errorf("loading canonical links: %w", err)
	}
	seen := make(map[int64]struct{}, len(canonicalLinks))
	for _, l := range canonicalLinks {
		seen[l.DocumentID] = struct{}{}
	}

	links, err := e.store.PersonDocumentsFor(ctx, dupIDs)
	if err != nil {
		return fmt.Errorf("loading duplicate links: %w", err)
	}
	for _, l := range links {
		if _, dup := seen[l.DocumentID]; dup {
			if err := e.store.DeletePersonDocument(ctx, l.PersonID, l.DocumentID); err != nil {
				return fmt.Errorf("dropping duplicate link: %w", err)
			}
			continue
		}
		if err := e.store.RepointPersonDocument(ctx, l.PersonID, l.DocumentID, canonicalID); err != nil {
			return fmt.Errorf("repointing link: %w", err)
		}
		seen[l.DocumentID] = struct{}{}
	}
	return nil
}

// repointConnections rewires the duplicates' connections onto the
// canonical, dropping self-loops and collapsing duplicate pairs, then
// clears anything still referencing a duplicate.
func (e *Engine) repointConnections(ctx context.Context, canonicalID int64, dupIDs []int64) error {
	dups := make(map[int64]struct{}, len(dupIDs))
	for _, id := range dupIDs {
		dups[id] = struct{}{}
	}

	canonicalConns, err := e.store.ConnectionsFor(ctx, []int64{canonicalID})
	if err != nil {
		return fmt.Errorf("loading canonical connections: %w", err)
	}
	peers := make(map[int64]struct{}, len(canonicalConns))
	for _, c := range canonicalConns {
		peers[c.Other(canonicalID)] = struct{}{}
	}

	conns, err := e.store.ConnectionsFor(ctx, dupIDs)
	if err != nil {
		return fmt.Errorf("loading duplicate connections: %w", err)
	}
	for _, c := range conns {
		if _, ok := dups[c.PersonID1]; ok {
			c.PersonID1 = canonicalID
		}
		if _, ok := dups[c.PersonID2]; ok {
			c.PersonID2 = canonicalID
		}
		if c.PersonID1 == c.PersonID2 {
			if err := e.store.DeleteConnection(ctx, c.ID); err != nil {
				return fmt.Errorf("dropping self-loop: %w", err)
			}
			continue
		}
		c.Normalize()
		peer := c.Other(canonicalID)
		if _, dup := peers[peer]; dup {
			if err := e.store.DeleteConnection(ctx, c.ID); err != nil {
				return fmt.Errorf("dropping duplicate connection: %w", err)
			}
			continue
		}
		if err := e.store.UpdateConnection(ctx, c); err != nil {
			return fmt.Errorf("repointing connection: %w", err)
		}
		peers[peer] = struct{}{}
	}

	// Safety net for rows the loop could not rewrite.
	if _, err := e.store.DeleteConnectionsFor(ctx, dupIDs); err != nil {
		return fmt.Errorf("clearing duplicate connections: %w", err)
	}
	return nil
}

// rewriteEvents replaces duplicate ids with the canonical id in every
// timeline event, de-duplicating the person list.
func (e *Engine) rewriteEvents(ctx context.Context, canonicalID int64, dupIDs []int64) error {
	dups := make(map[int64]struct{}, len(dupIDs))
	for _, id := range dupIDs {
		dups[id] = struct{}{}
	}
	events, err := e.store.TimelineEventsFor(ctx, dupIDs)
	if err != nil {
		return fmt.Errorf("loading events: %w", err)
	}
	for _, ev := range events {
		rewritten := make([]int64, 0, len(ev.PersonIDs))
		seen := make(map[int64]struct{}, len(ev.PersonIDs))
		for _, pid := range ev.PersonIDs {
			if _, ok := dups[pid]; ok {
				pid = canonicalID
			}
			if _, ok := seen[pid]; ok {
				continue
			}
			seen[pid] = struct{}{}
			rewritten = append(rewritten, pid)
		}
		if err := e.store.UpdateTimelineEventPersons(ctx, ev.ID, rewritten); err != nil {
			return fmt.Errorf("rewriting event %d: %w", ev.ID, err)
		}
	}
	return nil
}
