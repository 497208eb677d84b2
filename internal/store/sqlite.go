package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/ajitpratap0/personroster/internal/models"
)

// SQLiteStore implements Store backed by a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens or creates the roster database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	logger.Debug("opened sqlite store", "path", path)
	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS persons (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    name             TEXT NOT NULL,
    aliases_json     TEXT,
    category         TEXT,
    role             TEXT,
    description      TEXT,
    status           TEXT,
    document_count   INTEGER NOT NULL DEFAULT 0,
    connection_count INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS person_documents (
    person_id   INTEGER NOT NULL,
    document_id INTEGER NOT NULL,
    context     TEXT,
    PRIMARY KEY (person_id, document_id)
);
CREATE TABLE IF NOT EXISTS connections (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    person_id_1 INTEGER NOT NULL,
    person_id_2 INTEGER NOT NULL,
    conn_type   TEXT,
    description TEXT,
    strength    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS timeline_events (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    title           TEXT,
    event_date      TEXT,
    person_ids_json TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_person_documents_document ON person_documents(document_id);
CREATE INDEX IF NOT EXISTS idx_connections_p1 ON connections(person_id_1);
CREATE INDEX IF NOT EXISTS idx_connections_p2 ON connections(person_id_2);
`

// Setup creates the schema if it does not exist.
func (s *SQLiteStore) Setup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// Ping verifies the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const personColumns = "id, name, aliases_json, category, role, description, status, document_count, connection_count"

func scanPerson(scanner interface{ Scan(dest ...any) error }) (models.Person, error) {
	var (
		p           models.Person
		aliasesJSON sql.NullString
		category    sql.NullString
		role        sql.NullString
		description sql.NullString
		status      sql.NullString
	)
	if err := scanner.Scan(
		&p.ID, &p.Name, &aliasesJSON, &category, &role,
		&description, &status, &p.DocumentCount, &p.ConnectionCount,
	); err != nil {
		return models.Person{}, err
	}
	p.Category = category.String
	p.Role = role.String
	p.Description = description.String
	p.Status = models.PersonStatus(status.String)
	if aliasesJSON.Valid && aliasesJSON.String != "" {
		if err := json.Unmarshal([]byte(aliasesJSON.String), &p.Aliases); err != nil {
			return models.Person{}, fmt.Errorf("decode aliases for person %d: %w", p.ID, err)
		}
	}
	return p, nil
}

func marshalAliases(aliases []string) (any, error) {
	if len(aliases) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(aliases)
	if err != nil {
		return nil, fmt.Errorf("encode aliases: %w", err)
	}
	return string(b), nil
}

// ListPersons returns all persons ordered by id.
func (s *SQLiteStore) ListPersons(ctx context.Context) ([]models.Person, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+personColumns+` FROM persons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	var persons []models.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

// GetPerson fetches a person by id.
func (s *SQLiteStore) GetPerson(ctx context.Context, id int64) (*models.Person, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM persons WHERE id = ?`, id)
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: person %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	return &p, nil
}

// CreatePerson inserts a person. A zero id is assigned by the database.
func (s *SQLiteStore) CreatePerson(ctx context.Context, p *models.Person) error {
	aliases, err := marshalAliases(p.Aliases)
	if err != nil {
		return err
	}
	if p.ID != 0 {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO persons (id, name, aliases_json, category, role, description, status, document_count, connection_count)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, aliases, nullableString(p.Category), nullableString(p.Role),
			nullableString(p.Description), nullableString(string(p.Status)), p.DocumentCount, p.ConnectionCount,
		)
		if err != nil {
			return fmt.Errorf("insert person: %w", err)
		}
		return nil
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO persons (name, aliases_json, category, role, description, status, document_count, connection_count)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, aliases, nullableString(p.Category), nullableString(p.Role),
		nullableString(p.Description), nullableString(string(p.Status)), p.DocumentCount, p.ConnectionCount,
	)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

// UpdatePerson persists changes to an existing person.
func (s *SQLiteStore) UpdatePerson(ctx context.Context, p models.Person) error {
	aliases, err := marshalAliases(p.Aliases)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE persons
         SET name = ?, aliases_json = ?, category = ?, role = ?, description = ?,
             status = ?, document_count = ?, connection_count = ?
         WHERE id = ?`,
		p.Name, aliases, nullableString(p.Category), nullableString(p.Role),
		nullableString(p.Description), nullableString(string(p.Status)),
		p.DocumentCount, p.ConnectionCount, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: person %d", ErrNotFound, p.ID)
	}
	return nil
}

// DeletePersons removes the given persons, returning how many rows went.
func (s *SQLiteStore) DeletePersons(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `DELETE FROM persons WHERE id IN (` + makePlaceholders(len(ids)) + `)`
	res, err := s.db.ExecContext(ctx, query, idArgs(ids)...)
	if err != nil {
		return 0, fmt.Errorf("delete persons: %w", err)
	}
	return res.RowsAffected()
}

// CountPersons returns the total number of persons.
func (s *SQLiteStore) CountPersons(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM persons`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count persons: %w", err)
	}
	return count, nil
}

func scanPersonDocuments(rows *sql.Rows) ([]models.PersonDocument, error) {
	defer rows.Close()
	var links []models.PersonDocument
	for rows.Next() {
		var (
			l       models.PersonDocument
			context sql.NullString
		)
		if err := rows.Scan(&l.PersonID, &l.DocumentID, &context); err != nil {
			return nil, err
		}
		l.Context = context.String
		links = append(links, l)
	}
	return links, rows.Err()
}

// ListPersonDocuments returns all mention links.
func (s *SQLiteStore) ListPersonDocuments(ctx context.Context) ([]models.PersonDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT person_id, document_id, context FROM person_documents ORDER BY person_id, document_id`)
	if err != nil {
		return nil, fmt.Errorf("list person documents: %w", err)
	}
	return scanPersonDocuments(rows)
}

// PersonDocumentsFor returns mention links for the given persons.
func (s *SQLiteStore) PersonDocumentsFor(ctx context.Context, personIDs []int64) ([]models.PersonDocument, error) {
	if len(personIDs) == 0 {
		return nil, nil
	}
	query := `SELECT person_id, document_id, context FROM person_documents
              WHERE person_id IN (` + makePlaceholders(len(personIDs)) + `) ORDER BY person_id, document_id`
	rows, err := s.db.QueryContext(ctx, query, idArgs(personIDs)...)
	if err != nil {
		return nil, fmt.Errorf("person documents for: %w", err)
	}
	return scanPersonDocuments(rows)
}

// AddPersonDocument inserts a mention link, replacing any existing row
// for the same (person, document) pair.
func (s *SQLiteStore) AddPersonDocument(ctx context.Context, link models.PersonDocument) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO person_documents (person_id, document_id, context) VALUES (?, ?, ?)`,
		link.PersonID, link.DocumentID, nullableString(link.Context),
	)
	if err != nil {
		return fmt.Errorf("insert person document: %w", err)
	}
	return nil
}

// RepointPersonDocument moves a mention link to a new owner. It fails on
// the pair uniqueness constraint when the new owner already holds the
// document.
func (s *SQLiteStore) RepointPersonDocument(ctx context.Context, personID, documentID, newPersonID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE person_documents SET person_id = ? WHERE person_id = ? AND document_id = ?`,
		newPersonID, personID, documentID,
	)
	if err != nil {
		return fmt.Errorf("repoint person document: %w", err)
	}
	return nil
}

// DeletePersonDocument removes one mention link.
func (s *SQLiteStore) DeletePersonDocument(ctx context.Context, personID, documentID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM person_documents WHERE person_id = ? AND document_id = ?`,
		personID, documentID,
	)
	if err != nil {
		return fmt.Errorf("delete person document: %w", err)
	}
	return nil
}

// DeletePersonDocumentsFor removes all mention links for the given persons.
func (s *SQLiteStore) DeletePersonDocumentsFor(ctx context.Context, personIDs []int64) (int64, error) {
	if len(personIDs) == 0 {
		return 0, nil
	}
	query := `DELETE FROM person_documents WHERE person_id IN (` + makePlaceholders(len(personIDs)) + `)`
	res, err := s.db.ExecContext(ctx, query, idArgs(personIDs)...)
	if err != nil {
		return 0, fmt.Errorf("delete person documents: %w", err)
	}
	return res.RowsAffected()
}

// CountPersonDocuments returns the number of documents linked to a person.
func (s *SQLiteStore) CountPersonDocuments(ctx context.Context, personID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM person_documents WHERE person_id = ?`, personID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count person documents: %w", err)
	}
	return count, nil
}

const connectionColumns = "id, person_id_1, person_id_2, conn_type, description, strength"

func scanConnections(rows *sql.Rows) ([]models.Connection, error) {
	defer rows.Close()
	var conns []models.Connection
	for rows.Next() {
		var (
			c           models.Connection
			connType    sql.NullString
			description sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.PersonID1, &c.PersonID2, &connType, &description, &c.Strength); err != nil {
			return nil, err
		}
		c.Type = connType.String
		c.Description = description.String
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// ListConnections returns all connections ordered by id.
func (s *SQLiteStore) ListConnections(ctx context.Context) ([]models.Connection, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+connectionColumns+` FROM connections ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	return scanConnections(rows)
}

// ConnectionsFor returns connections touching any of the given persons.
func (s *SQLiteStore) ConnectionsFor(ctx context.Context, personIDs []int64) ([]models.Connection, error) {
	if len(personIDs) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(personIDs))
	query := `SELECT ` + connectionColumns + ` FROM connections
              WHERE person_id_1 IN (` + placeholders + `) OR person_id_2 IN (` + placeholders + `) ORDER BY id`
	args := append(idArgs(personIDs), idArgs(personIDs)...)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("connections for: %w", err)
	}
	return scanConnections(rows)
}

// AddConnection inserts a connection. A zero id is assigned by the database.
func (s *SQLiteStore) AddConnection(ctx context.Context, c *models.Connection) error {
	c.Normalize()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO connections (person_id_1, person_id_2, conn_type, description, strength)
         VALUES (?, ?, ?, ?, ?)`,
		c.PersonID1, c.PersonID2, nullableString(c.Type), nullableString(c.Description), c.Strength,
	)
	if err != nil {
		return fmt.Errorf("insert connection: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

// UpdateConnection persists changes to an existing connection.
func (s *SQLiteStore) UpdateConnection(ctx context.Context, c models.Connection) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE connections SET person_id_1 = ?, person_id_2 = ?, conn_type = ?, description = ?, strength = ?
         WHERE id = ?`,
		c.PersonID1, c.PersonID2, nullableString(c.Type), nullableString(c.Description), c.Strength, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update connection: %w", err)
	}
	return nil
}

// DeleteConnection removes a connection by id.
func (s *SQLiteStore) DeleteConnection(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM connections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	return nil
}

// DeleteConnectionsFor removes connections touching any of the given persons.
func (s *SQLiteStore) DeleteConnectionsFor(ctx context.Context, personIDs []int64) (int64, error) {
	if len(personIDs) == 0 {
		return 0, nil
	}
	placeholders := makePlaceholders(len(personIDs))
	query := `DELETE FROM connections
              WHERE person_id_1 IN (` + placeholders + `) OR person_id_2 IN (` + placeholders + `)`
	args := append(idArgs(personIDs), idArgs(personIDs)...)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete connections: %w", err)
	}
	return res.RowsAffected()
}

// CountConnections returns the number of connections touching a person.
func (s *SQLiteStore) CountConnections(ctx context.Context, personID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM connections WHERE person_id_1 = ? OR person_id_2 = ?`,
		personID, personID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count connections: %w", err)
	}
	return count, nil
}

func scanTimelineEvents(rows *sql.Rows) ([]models.TimelineEvent, error) {
	defer rows.Close()
	var events []models.TimelineEvent
	for rows.Next() {
		var (
			ev      models.TimelineEvent
			title   sql.NullString
			date    sql.NullString
			idsJSON string
		)
		if err := rows.Scan(&ev.ID, &title, &date, &idsJSON); err != nil {
			return nil, err
		}
		ev.Title = title.String
		ev.Date = date.String
		if err := json.Unmarshal([]byte(idsJSON), &ev.PersonIDs); err != nil {
			return nil, fmt.Errorf("decode person ids for event %d: %w", ev.ID, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ListTimelineEvents returns all timeline events ordered by id.
func (s *SQLiteStore) ListTimelineEvents(ctx context.Context) ([]models.TimelineEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, event_date, person_ids_json FROM timeline_events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}
	return scanTimelineEvents(rows)
}

// TimelineEventsFor returns events referencing any of the given persons.
// Person membership lives in a JSON column, so the filter happens here
// rather than in SQL.
func (s *SQLiteStore) TimelineEventsFor(ctx context.Context, personIDs []int64) ([]models.TimelineEvent, error) {
	all, err := s.ListTimelineEvents(ctx)
	if err != nil {
		return nil, err
	}
	wanted := idSet(personIDs)
	var out []models.TimelineEvent
	for _, ev := range all {
		for _, pid := range ev.PersonIDs {
			if _, ok := wanted[pid]; ok {
				out = append(out, ev)
				break
			}
		}
	}
	return out, nil
}

// AddTimelineEvent inserts a timeline event. A zero id is assigned by
// the database.
func (s *SQLiteStore) AddTimelineEvent(ctx context.Context, ev *models.TimelineEvent) error {
	ids := ev.PersonIDs
	if ids == nil {
		ids = []int64{}
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode person ids: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO timeline_events (title, event_date, person_ids_json) VALUES (?, ?, ?)`,
		nullableString(ev.Title), nullableString(ev.Date), string(idsJSON),
	)
	if err != nil {
		return fmt.Errorf("insert timeline event: %w", err)
	}
	ev.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

// UpdateTimelineEventPersons replaces the person list of an event.
func (s *SQLiteStore) UpdateTimelineEventPersons(ctx context.Context, eventID int64, personIDs []int64) error {
	if personIDs == nil {
		personIDs = []int64{}
	}
	idsJSON, err := json.Marshal(personIDs)
	if err != nil {
		return fmt.Errorf("encode person ids: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE timeline_events SET person_ids_json = ? WHERE id = ?`,
		string(idsJSON), eventID,
	)
	if err != nil {
		return fmt.Errorf("update timeline event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: event %d", ErrNotFound, eventID)
	}
	return nil
}

// Stats returns summary counts for the entity tables.
func (s *SQLiteStore) Stats(ctx context.Context) (*models.StoreStats, error) {
	stats := &models.StoreStats{ByStatus: make(map[string]int64)}

	counts := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM persons`, &stats.Persons},
		{`SELECT COUNT(*) FROM person_documents`, &stats.DocumentLinks},
		{`SELECT COUNT(*) FROM connections`, &stats.Connections},
		{`SELECT COUNT(*) FROM timeline_events`, &stats.TimelineEvents},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("store stats: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM persons WHERE status IS NOT NULL GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("status stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = count
	}
	return stats, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func idArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
