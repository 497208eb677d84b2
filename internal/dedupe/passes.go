package dedupe

import (
	"context"
	"fmt"
	"sort"

	"github.com/ajitpratap0/personroster/internal/metrics"
	"github.com/ajitpratap0/personroster/internal/models"
	"github.com/ajitpratap0/personroster/pkg/namenorm"
)

// minSingleWordLen is the shortest single-word name Pass 2 will try to
// resolve with evidence. Anything shorter goes straight to Pass 3.
const minSingleWordLen = 3

type passFunc func(ctx context.Context, state *runState, ix *EvidenceIndex, emit actionSink) (int, error)

// runPasses executes the seven passes in fixed order. Each proposal is
// handed to the sink; cancellation is polled between proposals, never
// mid-action.
func (e *Engine) runPasses(ctx context.Context, state *runState, ix *EvidenceIndex, sink actionSink) error {
	emit := func(ctx context.Context, action models.DeduplicationAction) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return sink(ctx, action)
	}

	passes := []passFunc{
		e.passJunkRemoval,
		e.passExactMatch,
		e.passSingleWordEvidence,
		e.passDeleteSingleWord,
		e.passKeyFigures,
		e.passMiddleInitial,
		e.passNicknames,
	}
	for i, pass := range passes {
		count, err := pass(ctx, state, ix, emit)
		if err != nil {
			return fmt.Errorf("pass %d (%s): %w", i, models.PassLabels[i], err)
		}
		e.logger.Info("pass complete", "pass", i, "label", models.PassLabels[i], "proposals", count)
	}
	return nil
}

// passJunkRemoval (pass 0) deletes every non-protected person whose name
// the classifier flags as junk.
func (e *Engine) passJunkRemoval(ctx context.Context, state *runState, _ *EvidenceIndex, emit actionSink) (int, error) {
	count := 0
	for _, p := range state.live() {
		if e.rules.IsProtected(p.Name) {
			continue
		}
		junk, rule := e.junk.Classify(p.Name)
		if !junk {
			continue
		}
		action := models.DeduplicationAction{
			Pass:        0,
			Type:        models.ActionDelete,
			Reason:      fmt.Sprintf("junk name (%s)", rule),
			TargetIDs:   []int64{p.ID},
			TargetNames: []string{p.Name},
		}
		if err := emit(ctx, action); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// passExactMatch (pass 1) merges persons whose normalized names are
// byte-for-byte identical.
func (e *Engine) passExactMatch(ctx context.Context, state *runState, _ *EvidenceIndex, emit actionSink) (int, error) {
	groups := make(map[string][]models.Person)
	var keys []string
	for _, p := range state.live() {
		key := namenorm.Normalize(p.Name)
		if key == "" {
			continue
		}
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], p)
	}
	sort.Strings(keys)

	count := 0
	for _, key := range keys {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		canonical := e.SelectCanonical(group)
		var dupIDs []int64
		var names []string
		for _, p := range group {
			names = append(names, p.Name)
			if p.ID != canonical.ID {
				dupIDs = append(dupIDs, p.ID)
			}
		}
		action := models.DeduplicationAction{
			Pass:          1,
			Type:          models.ActionMerge,
			Reason:        "exact normalized match",
			CanonicalID:   canonical.ID,
			CanonicalName: canonical.Name,
			DuplicateIDs:  dupIDs,
			MergedNames:   names,
			Evidence:      fmt.Sprintf("normalized %q", key),
		}
		if err := emit(ctx, action); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// passSingleWordEvidence (pass 2) resolves single-word names against
// multi-word persons sharing that word, accepting a merge only when the
// co-occurrence evidence is unambiguous.
func (e *Engine) passSingleWordEvidence(ctx context.Context, state *runState, ix *EvidenceIndex, emit actionSink) (int, error) {
	live := state.live()
	count := 0
	for _, p := range live {
		parts := namenorm.MeaningfulParts(p.Name)
		if len(parts) != 1 || len(parts[0]) < minSingleWordLen {
			continue
		}
		if e.rules.IsProtected(p.Name) {
			continue
		}
		word := parts[0]

		type scored struct {
			person models.Person
			score  int
		}
		var candidates []scored
		for _, c := range live {
			if c.ID == p.ID || !state.alive(c.ID) {
				continue
			}
			if len(namenorm.MeaningfulParts(c.Name)) < 2 {
				continue
			}
			if !namenorm.ContainsToken(c.Name, word) {
				continue
			}
			if score := ix.Score(p.ID, c.ID); score > 0 {
				candidates = append(candidates, scored{person: c, score: score})
			}
		}
		if len(candidates) == 0 {
			continue
		}
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].score != candidates[j].score {
				return candidates[i].score > candidates[j].score
			}
			return candidates[i].person.ID < candidates[j].person.ID
		})

		top := candidates[0]
		var evidence string
		switch {
		case len(candidates) == 1:
			evidence = fmt.Sprintf("ONLY_MATCH score %d (docs %d, conns %d)",
				top.score, ix.SharedDocuments(p.ID, top.person.ID), ix.SharedConnections(p.ID, top.person.ID))
		case top.score >= clearWinnerRatio*candidates[1].score:
			evidence = fmt.Sprintf("CLEAR_WINNER score %d vs %d", top.score, candidates[1].score)
		default:
			e.logger.Info("insufficient evidence for single-word merge",
				"name", p.Name, "top", top.person.Name, "top_score", top.score,
				"runner_up", candidates[1].person.Name, "runner_up_score", candidates[1].score)
			metrics.Inc(metrics.AmbiguousSkips)
			continue
		}

		action := models.DeduplicationAction{
			Pass:          2,
			Type:          models.ActionMerge,
			Reason:        "single-word evidence merge",
			CanonicalID:   top.person.ID,
			CanonicalName: top.person.Name,
			DuplicateIDs:  []int64{p.ID},
			MergedNames:   []string{p.Name},
			Evidence:      evidence,
		}
		if err := emit(ctx, action); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// passDeleteSingleWord (pass 3) removes non-protected persons still
// carrying at most one meaningful word: Pass 2 could not resolve them.
func (e *Engine) passDeleteSingleWord(ctx context.Context, state *runState, _ *EvidenceIndex, emit actionSink) (int, error) {
	count := 0
	for _, p := range state.live() {
		if len(namenorm.MeaningfulParts(p.Name)) > 1 {
			continue
		}
		if e.rules.IsProtected(p.Name) {
			continue
		}
		action := models.DeduplicationAction{
			Pass:        3,
			Type:        models.ActionDelete,
			Reason:      "unresolved single-word name",
			TargetIDs:   []int64{p.ID},
			TargetNames: []string{p.Name},
		}
		if err := emit(ctx, action); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// byNormalized indexes live persons by normalized name.
func byNormalized(live []models.Person) map[string][]models.Person {
	out := make(map[string][]models.Person, len(live))
	for _, p := range live {
		key := namenorm.Normalize(p.Name)
		out[key] = append(out[key], p)
	}
	return out
}

// passKeyFigures (pass 4) applies the curated key-figure table: known
// spelling variants merge into the canonical, known junk variants are
// deleted.
func (e *Engine) passKeyFigures(ctx context.Context, state *runState, _ *EvidenceIndex, emit actionSink) (int, error) {
	index := byNormalized(state.live())
	count := 0
	for _, kf := range e.rules.KeyFigures {
		canonical, ok := firstAlive(state, index[namenorm.Normalize(kf.Canonical)])
		if ok {
			var dupIDs []int64
			var names []string
			for _, variant := range kf.Variants {
				for _, p := range index[namenorm.Normalize(variant)] {
					if p.ID == canonical.ID || !state.alive(p.ID) || e.rules.IsProtected(p.Name) {
						continue
					}
					dupIDs = append(dupIDs, p.ID)
					names = append(names, p.Name)
				}
			}
			if len(dupIDs) > 0 {
				action := models.DeduplicationAction{
					Pass:          4,
					Type:          models.ActionMerge,
					Reason:        "key figure variant",
					CanonicalID:   canonical.ID,
					CanonicalName: canonical.Name,
					DuplicateIDs:  dupIDs,
					MergedNames:   names,
				}
				if err := emit(ctx, action); err != nil {
					return count, err
				}
				count++
			}
		} else {
			e.logger.Debug("key figure not present", "canonical", kf.Canonical)
		}

		var junkIDs []int64
		var junkNames []string
		for _, junk := range kf.Junk {
			for _, p := range index[namenorm.Normalize(junk)] {
				if !state.alive(p.ID) || e.rules.IsProtected(p.Name) {
					continue
				}
				junkIDs = append(junkIDs, p.ID)
				junkNames = append(junkNames, p.Name)
			}
		}
		if len(junkIDs) > 0 {
			action := models.DeduplicationAction{
				Pass:        4,
				Type:        models.ActionDelete,
				Reason:      "key figure junk variant",
				TargetIDs:   junkIDs,
				TargetNames: junkNames,
			}
			if err := emit(ctx, action); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func firstAlive(state *runState, persons []models.Person) (models.Person, bool) {
	for _, p := range persons {
		if state.alive(p.ID) {
			return p, true
		}
	}
	return models.Person{}, false
}

// passMiddleInitial (pass 5) pairs two-word persons with persons whose
// names carry three or more meaningful words sharing the same first and
// last word. A single unambiguous match merges the record with fewer
// document and connection references into the one with more.
func (e *Engine) passMiddleInitial(ctx context.Context, state *runState, ix *EvidenceIndex, emit actionSink) (int, error) {
	type nameKey struct {
		first string
		last  string
	}
	live := state.live()
	index := make(map[nameKey][]models.Person)
	for _, p := range live {
		parts := namenorm.MeaningfulParts(p.Name)
		if len(parts) >= 3 {
			key := nameKey{first: parts[0], last: parts[len(parts)-1]}
			index[key] = append(index[key], p)
		}
	}

	count := 0
	for _, p := range live {
		if !state.alive(p.ID) {
			continue
		}
		parts := namenorm.MeaningfulParts(p.Name)
		if len(parts) != 2 {
			continue
		}
		holders := index[nameKey{first: parts[0], last: parts[1]}]
		var alive []models.Person
		for _, h := range holders {
			if state.alive(h.ID) {
				alive = append(alive, h)
			}
		}
		if len(alive) == 0 {
			continue
		}
		if len(alive) > 1 {
			e.logger.Info("insufficient evidence for middle-initial merge",
				"name", p.Name, "matches", len(alive))
			metrics.Inc(metrics.AmbiguousSkips)
			continue
		}
		other := alive[0]

		winner, loser := other, p
		if ix.References(p.ID) > ix.References(other.ID) {
			winner, loser = p, other
		} else if ix.References(p.ID) == ix.References(other.ID) && p.ID < other.ID {
			winner, loser = p, other
		}
		// A protected record is never the absorbed side.
		if e.rules.IsProtected(loser.Name) {
			if e.rules.IsProtected(winner.Name) {
				continue
			}
			winner, loser = loser, winner
		}

		action := models.DeduplicationAction{
			Pass:          5,
			Type:          models.ActionMerge,
			Reason:        "middle-initial variant",
			CanonicalID:   winner.ID,
			CanonicalName: winner.Name,
			DuplicateIDs:  []int64{loser.ID},
			MergedNames:   []string{loser.Name},
			Evidence: fmt.Sprintf("references %d vs %d",
				ix.References(winner.ID), ix.References(loser.ID)),
		}
		if err := emit(ctx, action); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// passNicknames (pass 6) applies the curated OCR-misread/nickname table.
func (e *Engine) passNicknames(ctx context.Context, state *runState, _ *EvidenceIndex, emit actionSink) (int, error) {
	index := byNormalized(state.live())
	count := 0
	for _, group := range e.rules.Nicknames {
		canonical, ok := firstAlive(state, index[namenorm.Normalize(group.Canonical)])
		if !ok {
			e.logger.Debug("nickname canonical not present", "canonical", group.Canonical)
			continue
		}
		var dupIDs []int64
		var names []string
		for _, variant := range group.Variants {
			for _, p := range index[namenorm.Normalize(variant)] {
				if p.ID == canonical.ID || !state.alive(p.ID) || e.rules.IsProtected(p.Name) {
					continue
				}
				dupIDs = append(dupIDs, p.ID)
				names = append(names, p.Name)
			}
		}
		if len(dupIDs) == 0 {
			continue
		}
		action := models.DeduplicationAction{
			Pass:          6,
			Type:          models.ActionMerge,
			Reason:        "ocr/nickname variant",
			CanonicalID:   canonical.ID,
			CanonicalName: canonical.Name,
			DuplicateIDs:  dupIDs,
			MergedNames:   names,
		}
		if err := emit(ctx, action); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
