package dedupe

import "github.com/ajitpratap0/personroster/internal/models"

// Evidence weighting: a shared document counts double a shared
// connection, and a merge needs the top score to double the runner-up.
// These constants are tuned against the live corpus — changing them
// changes which entities get merged.
const (
	documentWeight   = 2
	clearWinnerRatio = 2
)

// EvidenceIndex holds person-to-document and person-to-connection
// co-occurrence sets, built once per run from the store snapshot and
// held read-only. It is not refreshed as the person table changes
// mid-run; that staleness is accepted.
type EvidenceIndex struct {
	docsByPerson  map[int64]map[int64]struct{}
	connsByPerson map[int64]map[int64]struct{}
}

// NewEvidenceIndex builds the index from snapshot link and connection
// lists.
func NewEvidenceIndex(links []models.PersonDocument, conns []models.Connection) *EvidenceIndex {
	ix := &EvidenceIndex{
		docsByPerson:  make(map[int64]map[int64]struct{}),
		connsByPerson: make(map[int64]map[int64]struct{}),
	}
	for _, l := range links {
		docs := ix.docsByPerson[l.PersonID]
		if docs == nil {
			docs = make(map[int64]struct{})
			ix.docsByPerson[l.PersonID] = docs
		}
		docs[l.DocumentID] = struct{}{}
	}
	for _, c := range conns {
		ix.addConn(c.PersonID1, c.PersonID2)
		ix.addConn(c.PersonID2, c.PersonID1)
	}
	return ix
}

func (ix *EvidenceIndex) addConn(personID, otherID int64) {
	peers := ix.connsByPerson[personID]
	if peers == nil {
		peers = make(map[int64]struct{})
		ix.connsByPerson[personID] = peers
	}
	peers[otherID] = struct{}{}
}

// SharedDocuments counts documents mentioning both persons.
func (ix *EvidenceIndex) SharedDocuments(a, b int64) int {
	return intersectionSize(ix.docsByPerson[a], ix.docsByPerson[b])
}

// SharedConnections counts peers connected to both persons.
func (ix *EvidenceIndex) SharedConnections(a, b int64) int {
	return intersectionSize(ix.connsByPerson[a], ix.connsByPerson[b])
}

// Score judges how likely two records denote the same individual:
// 2 x shared documents + shared connections.
func (ix *EvidenceIndex) Score(a, b int64) int {
	return documentWeight*ix.SharedDocuments(a, b) + ix.SharedConnections(a, b)
}

// References counts the total document and connection references a
// person holds, used to pick the survivor of a variant pair.
func (ix *EvidenceIndex) References(id int64) int {
	return len(ix.docsByPerson[id]) + len(ix.connsByPerson[id])
}

func intersectionSize(a, b map[int64]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	count := 0
	for k := range a {
		if _, ok := b[k]; ok {
			count++
		}
	}
	return count
}
