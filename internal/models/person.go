package models

// PersonStatus classifies a person's standing in the source corpus.
type PersonStatus string

const (
	StatusNamed     PersonStatus = "named"
	StatusVictim    PersonStatus = "victim"
	StatusConvicted PersonStatus = "convicted"
	StatusWitness   PersonStatus = "witness"
	StatusCharged   PersonStatus = "charged"
)

// ValidPersonStatuses is the set of all valid person statuses.
var ValidPersonStatuses = []PersonStatus{
	StatusNamed,
	StatusVictim,
	StatusConvicted,
	StatusWitness,
	StatusCharged,
}

// IsValid returns true if the person status is recognized.
func (ps PersonStatus) IsValid() bool {
	for _, v := range ValidPersonStatuses {
		if ps == v {
			return true
		}
	}
	return false
}

// MaxAliases caps the alias list carried by a person. Merges that would
// push past the cap silently drop the overflow.
const MaxAliases = 20

// Person is a candidate individual extracted from the document corpus.
// DocumentCount and ConnectionCount are derived from the link tables and
// recomputed after every merge; they are never authoritative.
type Person struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	Aliases         []string     `json:"aliases,omitempty"`
	Category        string       `json:"category,omitempty"`
	Role            string       `json:"role,omitempty"`
	Description     string       `json:"description,omitempty"`
	Status          PersonStatus `json:"status,omitempty"`
	DocumentCount   int          `json:"document_count"`
	ConnectionCount int          `json:"connection_count"`
}

// HasAlias reports whether the person already carries the given alias.
func (p *Person) HasAlias(name string) bool {
	for _, a := range p.Aliases {
		if a == name {
			return true
		}
	}
	return false
}

// PersonDocument links a person to a document that mentions them.
// At most one row exists per (PersonID, DocumentID) pair.
type PersonDocument struct {
	PersonID   int64  `json:"person_id"`
	DocumentID int64  `json:"document_id"`
	Context    string `json:"context,omitempty"`
}

// Connection is an undirected relationship between two persons, keyed
// canonically so PersonID1 < PersonID2. Self-loops are never stored.
type Connection struct {
	ID          int64  `json:"id"`
	PersonID1   int64  `json:"person_id_1"`
	PersonID2   int64  `json:"person_id_2"`
	Type        string `json:"connection_type,omitempty"`
	Description string `json:"description,omitempty"`
	Strength    int    `json:"strength,omitempty"`
}

// Normalize orders the pair so PersonID1 is the lower id.
func (c *Connection) Normalize() {
	if c.PersonID1 > c.PersonID2 {
		c.PersonID1, c.PersonID2 = c.PersonID2, c.PersonID1
	}
}

// Involves reports whether the connection references the given person.
func (c *Connection) Involves(personID int64) bool {
	return c.PersonID1 == personID || c.PersonID2 == personID
}

// Other returns the opposite endpoint of the connection, or 0 when the
// given person is not an endpoint.
func (c *Connection) Other(personID int64) int64 {
	switch personID {
	case c.PersonID1:
		return c.PersonID2
	case c.PersonID2:
		return c.PersonID1
	}
	return 0
}

// TimelineEvent is a dated event referencing zero or more persons.
// PersonIDs holds each id at most once and never references a deleted
// or absorbed person.
type TimelineEvent struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title,omitempty"`
	Date      string  `json:"date,omitempty"`
	PersonIDs []int64 `json:"person_ids"`
}

// StoreStats holds summary counts for the entity tables.
type StoreStats struct {
	Persons        int64            `json:"persons"`
	DocumentLinks  int64            `json:"document_links"`
	Connections    int64            `json:"connections"`
	TimelineEvents int64            `json:"timeline_events"`
	ByStatus       map[string]int64 `json:"by_status"`
}
