package store

import (
	"context"
	"errors"

	"github.com/ajitpratap0/personroster/internal/models"
)

// ErrNotFound is returned by point lookups when the record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the persistence interface for the person graph. The
// deduplication engine only needs bulk snapshots plus point mutations by
// id or id-set; it never relies on backend-specific behavior.
type Store interface {
	// Setup creates schema or indices if they don't exist.
	Setup(ctx context.Context) error

	// Close cleans up resources.
	Close() error

	// Persons.
	ListPersons(ctx context.Context) ([]models.Person, error)
	GetPerson(ctx context.Context, id int64) (*models.Person, error)
	CreatePerson(ctx context.Context, p *models.Person) error
	UpdatePerson(ctx context.Context, p models.Person) error
	DeletePersons(ctx context.Context, ids []int64) (int64, error)
	CountPersons(ctx context.Context) (int64, error)

	// Person-document mention links, keyed by (personID, documentID).
	ListPersonDocuments(ctx context.Context) ([]models.PersonDocument, error)
	PersonDocumentsFor(ctx context.Context, personIDs []int64) ([]models.PersonDocument, error)
	AddPersonDocument(ctx context.Context, link models.PersonDocument) error
	RepointPersonDocument(ctx context.Context, personID, documentID, newPersonID int64) error
	DeletePersonDocument(ctx context.Context, personID, documentID int64) error
	DeletePersonDocumentsFor(ctx context.Context, personIDs []int64) (int64, error)
	CountPersonDocuments(ctx context.Context, personID int64) (int, error)

	// Undirected person-person connections.
	ListConnections(ctx context.Context) ([]models.Connection, error)
	ConnectionsFor(ctx context.Context, personIDs []int64) ([]models.Connection, error)
	AddConnection(ctx context.Context, c *models.Connection) error
	UpdateConnection(ctx context.Context, c models.Connection) error
	DeleteConnection(ctx context.Context, id int64) error
	DeleteConnectionsFor(ctx context.Context, personIDs []int64) (int64, error)
	CountConnections(ctx context.Context, personID int64) (int, error)

	// Timeline events referencing persons.
	ListTimelineEvents(ctx context.Context) ([]models.TimelineEvent, error)
	TimelineEventsFor(ctx context.Context, personIDs []int64) ([]models.TimelineEvent, error)
	AddTimelineEvent(ctx context.Context, ev *models.TimelineEvent) error
	UpdateTimelineEventPersons(ctx context.Context, eventID int64, personIDs []int64) error

	// Stats returns summary counts for the entity tables.
	Stats(ctx context.Context) (*models.StoreStats, error)
}
