package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ajitpratap0/personroster/internal/models"
)

// MockStore is an in-memory implementation of Store for testing.
type MockStore struct {
	mu      sync.RWMutex
	persons map[int64]models.Person
	links   map[linkKey]models.PersonDocument
	conns   map[int64]models.Connection
	events  map[int64]models.TimelineEvent

	nextPersonID int64
	nextConnID   int64
	nextEventID  int64
}

type linkKey struct {
	personID   int64
	documentID int64
}

// NewMockStore creates a new mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		persons: make(map[int64]models.Person),
		links:   make(map[linkKey]models.PersonDocument),
		conns:   make(map[int64]models.Connection),
		events:  make(map[int64]models.TimelineEvent),
	}
}

// Setup is a no-op for the mock store.
func (m *MockStore) Setup(_ context.Context) error { return nil }

// Close is a no-op for the mock store.
func (m *MockStore) Close() error { return nil }

func copyPerson(p models.Person) models.Person {
	if len(p.Aliases) > 0 {
		aliases := make([]string, len(p.Aliases))
		copy(aliases, p.Aliases)
		p.Aliases = aliases
	}
	return p
}

func copyEvent(ev models.TimelineEvent) models.TimelineEvent {
	if len(ev.PersonIDs) > 0 {
		ids := make([]int64, len(ev.PersonIDs))
		copy(ids, ev.PersonIDs)
		ev.PersonIDs = ids
	}
	return ev
}

// ListPersons returns all persons ordered by id.
func (m *MockStore) ListPersons(_ context.Context) ([]models.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Person, 0, len(m.persons))
	for _, p := range m.persons {
		out = append(out, copyPerson(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetPerson retrieves a person by id.
func (m *MockStore) GetPerson(_ context.Context, id int64) (*models.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.persons[id]
	if !ok {
		return nil, fmt.Errorf("%w: person %d", ErrNotFound, id)
	}
	p = copyPerson(p)
	return &p, nil
}

// CreatePerson inserts a person, assigning an id when the caller left it
// zero.
func (m *MockStore) CreatePerson(_ context.Context, p *models.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		m.nextPersonID++
		p.ID = m.nextPersonID
	} else if p.ID > m.nextPersonID {
		m.nextPersonID = p.ID
	}
	m.persons[p.ID] = copyPerson(*p)
	return nil
}

// UpdatePerson persists changes to an existing person.
func (m *MockStore) UpdatePerson(_ context.Context, p models.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.persons[p.ID]; !ok {
		return fmt.Errorf("%w: person %d", ErrNotFound, p.ID)
	}
	m.persons[p.ID] = copyPerson(p)
	return nil
}

// DeletePersons removes the given persons, returning how many existed.
func (m *MockStore) DeletePersons(_ context.Context, ids []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for _, id := range ids {
		if _, ok := m.persons[id]; ok {
			delete(m.persons, id)
			deleted++
		}
	}
	return deleted, nil
}

// CountPersons returns the number of persons.
func (m *MockStore) CountPersons(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.persons)), nil
}

// ListPersonDocuments returns all mention links.
func (m *MockStore) ListPersonDocuments(_ context.Context) ([]models.PersonDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.PersonDocument, 0, len(m.links))
	for _, l := range m.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PersonID != out[j].PersonID {
			return out[i].PersonID < out[j].PersonID
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	return out, nil
}

// PersonDocumentsFor returns mention links for the given persons.
func (m *MockStore) PersonDocumentsFor(_ context.Context, personIDs []int64) ([]models.PersonDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := idSet(personIDs)
	var out []models.PersonDocument
	for _, l := range m.links {
		if _, ok := wanted[l.PersonID]; ok {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PersonID != out[j].PersonID {
			return out[i].PersonID < out[j].PersonID
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	return out, nil
}

// AddPersonDocument inserts a mention link, overwriting an existing row
// for the same (person, document) pair.
func (m *MockStore) AddPersonDocument(_ context.Context, link models.PersonDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[linkKey{link.PersonID, link.DocumentID}] = link
	return nil
}

// RepointPersonDocument moves a mention link to a new owner.
func (m *MockStore) RepointPersonDocument(_ context.Context, personID, documentID, newPersonID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := linkKey{personID, documentID}
	l, ok := m.links[key]
	if !ok {
		return fmt.Errorf("%w: link (%d,%d)", ErrNotFound, personID, documentID)
	}
	newKey := linkKey{newPersonID, documentID}
	if _, exists := m.links[newKey]; exists {
		return fmt.Errorf("link (%d,%d) already exists", newPersonID, documentID)
	}
	delete(m.links, key)
	l.PersonID = newPersonID
	m.links[newKey] = l
	return nil
}

// DeletePersonDocument removes one mention link.
func (m *MockStore) DeletePersonDocument(_ context.Context, personID, documentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, linkKey{personID, documentID})
	return nil
}

// DeletePersonDocumentsFor removes all mention links for the given persons.
func (m *MockStore) DeletePersonDocumentsFor(_ context.Context, personIDs []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := idSet(personIDs)
	var deleted int64
	for key := range m.links {
		if _, ok := wanted[key.personID]; ok {
			delete(m.links, key)
			deleted++
		}
	}
	return deleted, nil
}

// CountPersonDocuments returns the number of documents linked to a person.
func (m *MockStore) CountPersonDocuments(_ context.Context, personID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for key := range m.links {
		if key.personID == personID {
			count++
		}
	}
	return count, nil
}

// ListConnections returns all connections ordered by id.
func (m *MockStore) ListConnections(_ context.Context) ([]models.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Connection, 0, len(m.conns))
	for _, c := range m.conns {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ConnectionsFor returns connections touching any of the given persons.
func (m *MockStore) ConnectionsFor(_ context.Context, personIDs []int64) ([]models.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := idSet(personIDs)
	var out []models.Connection
	for _, c := range m.conns {
		_, ok1 := wanted[c.PersonID1]
		_, ok2 := wanted[c.PersonID2]
		if ok1 || ok2 {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AddConnection inserts a connection, assigning an id when absent.
func (m *MockStore) AddConnection(_ context.Context, c *models.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.Normalize()
	if c.ID == 0 {
		m.nextConnID++
		c.ID = m.nextConnID
	} else if c.ID > m.nextConnID {
		m.nextConnID = c.ID
	}
	m.conns[c.ID] = *c
	return nil
}

// UpdateConnection persists changes to an existing connection.
func (m *MockStore) UpdateConnection(_ context.Context, c models.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conns[c.ID]; !ok {
		return fmt.Errorf("%w: connection %d", ErrNotFound, c.ID)
	}
	m.conns[c.ID] = c
	return nil
}

// DeleteConnection removes a connection by id.
func (m *MockStore) DeleteConnection(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, id)
	return nil
}

// DeleteConnectionsFor removes connections touching any of the given persons.
func (m *MockStore) DeleteConnectionsFor(_ context.Context, personIDs []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := idSet(personIDs)
	var deleted int64
	for id, c := range m.conns {
		_, ok1 := wanted[c.PersonID1]
		_, ok2 := wanted[c.PersonID2]
		if ok1 || ok2 {
			delete(m.conns, id)
			deleted++
		}
	}
	return deleted, nil
}

// CountConnections returns the number of connections touching a person.
func (m *MockStore) CountConnections(_ context.Context, personID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, c := range m.conns {
		if c.Involves(personID) {
			count++
		}
	}
	return count, nil
}

// ListTimelineEvents returns all timeline events ordered by id.
func (m *MockStore) ListTimelineEvents(_ context.Context) ([]models.TimelineEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.TimelineEvent, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, copyEvent(ev))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// TimelineEventsFor returns events referencing any of the given persons.
func (m *MockStore) TimelineEventsFor(_ context.Context, personIDs []int64) ([]models.TimelineEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := idSet(personIDs)
	var out []models.TimelineEvent
	for _, ev := range m.events {
		for _, pid := range ev.PersonIDs {
			if _, ok := wanted[pid]; ok {
				out = append(out, copyEvent(ev))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AddTimelineEvent inserts a timeline event, assigning an id when absent.
func (m *MockStore) AddTimelineEvent(_ context.Context, ev *models.TimelineEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ID == 0 {
		m.nextEventID++
		ev.ID = m.nextEventID
	} else if ev.ID > m.nextEventID {
		m.nextEventID = ev.ID
	}
	m.events[ev.ID] = copyEvent(*ev)
	return nil
}

// UpdateTimelineEventPersons replaces the person list of an event.
func (m *MockStore) UpdateTimelineEventPersons(_ context.Context, eventID int64, personIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	if !ok {
		return fmt.Errorf("%w: event %d", ErrNotFound, eventID)
	}
	ids := make([]int64, len(personIDs))
	copy(ids, personIDs)
	ev.PersonIDs = ids
	m.events[eventID] = ev
	return nil
}

// Stats returns summary counts computed from the in-memory tables.
func (m *MockStore) Stats(_ context.Context) (*models.StoreStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &models.StoreStats{
		Persons:        int64(len(m.persons)),
		DocumentLinks:  int64(len(m.links)),
		Connections:    int64(len(m.conns)),
		TimelineEvents: int64(len(m.events)),
		ByStatus:       make(map[string]int64),
	}
	for _, p := range m.persons {
		if p.Status != "" {
			stats.ByStatus[string(p.Status)]++
		}
	}
	return stats, nil
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
