package dedupe

import (
	"sort"
	"strings"

	"github.com/ajitpratap0/personroster/internal/models"
	"github.com/ajitpratap0/personroster/pkg/namenorm"
)

// SelectCanonical picks the survivor of a duplicate group using a total
// order: protected roster membership, then absence of a comma in the raw
// name, then not being all-uppercase, then more meaningful word parts,
// then longer raw name, then lowest id. The id tiebreak is always
// decisive, so no two distinct persons can tie.
func (e *Engine) SelectCanonical(group []models.Person) models.Person {
	best := group[0]
	for _, p := range group[1:] {
		if e.betterCanonical(p, best) {
			best = p
		}
	}
	return best
}

func (e *Engine) betterCanonical(a, b models.Person) bool {
	if pa, pb := e.rules.IsProtected(a.Name), e.rules.IsProtected(b.Name); pa != pb {
		return pa
	}
	if ca, cb := strings.Contains(a.Name, ","), strings.Contains(b.Name, ","); ca != cb {
		return !ca
	}
	if ua, ub := isAllUpper(a.Name), isAllUpper(b.Name); ua != ub {
		return !ua
	}
	if wa, wb := len(namenorm.MeaningfulParts(a.Name)), len(namenorm.MeaningfulParts(b.Name)); wa != wb {
		return wa > wb
	}
	if la, lb := len(a.Name), len(b.Name); la != lb {
		return la > lb
	}
	return a.ID < b.ID
}

func isAllUpper(name string) bool {
	return name != "" && name == strings.ToUpper(name)
}

// sortByID orders persons ascending by id for deterministic iteration.
func sortByID(persons []models.Person) {
	sort.Slice(persons, func(i, j int) bool { return persons[i].ID < persons[j].ID })
}
