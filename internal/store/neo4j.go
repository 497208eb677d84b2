package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ajitpratap0/personroster/internal/models"
)

// Neo4jStore implements Store on a Neo4j (or Bolt-compatible) graph
// database. Persons are nodes, connections are undirected CONNECTED_TO
// relationships stored low-id to high-id, and document mentions are
// MENTIONED_IN relationships to Document nodes.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
	logger *slog.Logger
}

// NewNeo4jStore connects to the graph database and verifies connectivity.
func NewNeo4jStore(ctx context.Context, uri, username, password string, logger *slog.Logger) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verifying neo4j connectivity: %w", err)
	}
	logger.Info("connected to graph store", "uri", uri)
	return &Neo4jStore{driver: driver, logger: logger}, nil
}

// Close shuts down the driver.
func (s *Neo4jStore) Close() error {
	return s.driver.Close(context.Background())
}

func (s *Neo4jStore) run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return nil, fmt.Errorf("graph query failed: %w", err)
	}
	return result, nil
}

// Setup creates the indices the engine's lookups rely on.
func (s *Neo4jStore) Setup(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX person_id IF NOT EXISTS FOR (p:Person) ON (p.id)",
		"CREATE INDEX document_id IF NOT EXISTS FOR (d:Document) ON (d.id)",
		"CREATE INDEX event_id IF NOT EXISTS FOR (e:Event) ON (e.id)",
	}
	for _, q := range queries {
		if _, err := s.run(ctx, q, nil); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

// nextID allocates from a named counter node.
func (s *Neo4jStore) nextID(ctx context.Context, name string) (int64, error) {
	result, err := s.run(ctx, `
        MERGE (c:Counter {name: $name})
        ON CREATE SET c.value = 0
        SET c.value = c.value + 1
        RETURN c.value AS value`,
		map[string]any{"name": name})
	if err != nil {
		return 0, err
	}
	if len(result.Records) == 0 {
		return 0, fmt.Errorf("counter %s returned no value", name)
	}
	return asInt64(result.Records[0].AsMap()["value"]), nil
}

// bumpCounter keeps a counter at or above the given id so caller-assigned
// ids never collide with allocated ones.
func (s *Neo4jStore) bumpCounter(ctx context.Context, name string, id int64) error {
	_, err := s.run(ctx, `
        MERGE (c:Counter {name: $name})
        ON CREATE SET c.value = 0
        SET c.value = CASE WHEN c.value < $id THEN $id ELSE c.value END`,
		map[string]any{"name": name, "id": id})
	return err
}

const personReturn = `p.id AS id, p.name AS name, p.aliases AS aliases, p.category AS category,
       p.role AS role, p.description AS description, p.status AS status,
       p.document_count AS document_count, p.connection_count AS connection_count`

func personFromRecord(m map[string]any) models.Person {
	return models.Person{
		ID:              asInt64(m["id"]),
		Name:            asString(m["name"]),
		Aliases:         asStringSlice(m["aliases"]),
		Category:        asString(m["category"]),
		Role:            asString(m["role"]),
		Description:     asString(m["description"]),
		Status:          models.PersonStatus(asString(m["status"])),
		DocumentCount:   int(asInt64(m["document_count"])),
		ConnectionCount: int(asInt64(m["connection_count"])),
	}
}

// ListPersons returns all persons ordered by id.
func (s *Neo4jStore) ListPersons(ctx context.Context) ([]models.Person, error) {
	result, err := s.run(ctx, `MATCH (p:Person) RETURN `+personReturn+` ORDER BY p.id`, nil)
	if err != nil {
		return nil, err
	}
	persons := make([]models.Person, 0, len(result.Records))
	for _, rec := range result.Records {
		persons = append(persons, personFromRecord(rec.AsMap()))
	}
	return persons, nil
}

// GetPerson fetches a person by id.
func (s *Neo4jStore) GetPerson(ctx context.Context, id int64) (*models.Person, error) {
	result, err := s.run(ctx, `MATCH (p:Person {id: $id}) RETURN `+personReturn, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(result.Records) == 0 {
		return nil, fmt.Errorf("%w: person %d", ErrNotFound, id)
	}
	p := personFromRecord(result.Records[0].AsMap())
	return &p, nil
}

func personParams(p models.Person) map[string]any {
	aliases := make([]any, len(p.Aliases))
	for i, a := range p.Aliases {
		aliases[i] = a
	}
	return map[string]any{
		"id":               p.ID,
		"name":             p.Name,
		"aliases":          aliases,
		"category":         p.Category,
		"role":             p.Role,
		"description":      p.Description,
		"status":           string(p.Status),
		"document_count":   p.DocumentCount,
		"connection_count": p.ConnectionCount,
	}
}

// CreatePerson inserts a person, allocating an id when the caller left
// it zero.
func (s *Neo4jStore) CreatePerson(ctx context.Context, p *models.Person) error {
	if p.ID == 0 {
		id, err := s.nextID(ctx, "person")
		if err != nil {
			return err
		}
		p.ID = id
	} else if err := s.bumpCounter(ctx, "person", p.ID); err != nil {
		return err
	}
	_, err := s.run(ctx, `
        CREATE (p:Person {id: $id, name: $name, aliases: $aliases, category: $category,
                role: $role, description: $description, status: $status,
                document_count: $document_count, connection_count: $connection_count})`,
		personParams(*p))
	return err
}

// UpdatePerson persists changes to an existing person.
func (s *Neo4jStore) UpdatePerson(ctx context.Context, p models.Person) error {
	result, err := s.run(ctx, `
        MATCH (p:Person {id: $id})
        SET p.name = $name, p.aliases = $aliases, p.category = $category,
            p.role = $role, p.description = $description, p.status = $status,
            p.document_count = $document_count, p.connection_count = $connection_count
        RETURN p.id AS id`,
		personParams(p))
	if err != nil {
		return err
	}
	if len(result.Records) == 0 {
		return fmt.Errorf("%w: person %d", ErrNotFound, p.ID)
	}
	return nil
}

// DeletePersons removes the given persons and any relationships they hold.
func (s *Neo4jStore) DeletePersons(ctx context.Context, ids []int64) (int64, error) {
	result, err := s.run(ctx, `
        MATCH (p:Person) WHERE p.id IN $ids
        DETACH DELETE p
        RETURN count(p) AS deleted`,
		map[string]any{"ids": ids})
	if err != nil {
		return 0, err
	}
	if len(result.Records) == 0 {
		return 0, nil
	}
	return asInt64(result.Records[0].AsMap()["deleted"]), nil
}

// CountPersons returns the total number of persons.
func (s *Neo4jStore) CountPersons(ctx context.Context) (int64, error) {
	result, err := s.run(ctx, `MATCH (p:Person) RETURN count(p) AS total`, nil)
	if err != nil {
		return 0, err
	}
	return asInt64(result.Records[0].AsMap()["total"]), nil
}

func linksFromResult(result *neo4j.EagerResult) []models.PersonDocument {
	links := make([]models.PersonDocument, 0, len(result.Records))
	for _, rec := range result.Records {
		m := rec.AsMap()
		links = append(links, models.PersonDocument{
			PersonID:   asInt64(m["person_id"]),
			DocumentID: asInt64(m["document_id"]),
			Context:    asString(m["context"]),
		})
	}
	return links
}

// ListPersonDocuments returns all mention links.
func (s *Neo4jStore) ListPersonDocuments(ctx context.Context) ([]models.PersonDocument, error) {
	result, err := s.run(ctx, `
        MATCH (p:Person)-[r:MENTIONED_IN]->(d:Document)
        RETURN p.id AS person_id, d.id AS document_id, r.context AS context
        ORDER BY p.id, d.id`, nil)
	if err != nil {
		return nil, err
	}
	return linksFromResult(result), nil
}

// PersonDocumentsFor returns mention links for the given persons.
func (s *Neo4jStore) PersonDocumentsFor(ctx context.Context, personIDs []int64) ([]models.PersonDocument, error) {
	result, err := s.run(ctx, `
        MATCH (p:Person)-[r:MENTIONED_IN]->(d:Document)
        WHERE p.id IN $ids
        RETURN p.id AS person_id, d.id AS document_id, r.context AS context
        ORDER BY p.id, d.id`,
		map[string]any{"ids": personIDs})
	if err != nil {
		return nil, err
	}
	return linksFromResult(result), nil
}

// AddPersonDocument records a mention link, at most one per pair.
func (s *Neo4jStore) AddPersonDocument(ctx context.Context, link models.PersonDocument) error {
	_, err := s.run(ctx, `
        MATCH (p:Person {id: $person_id})
        MERGE (d:Document {id: $document_id})
        MERGE (p)-[r:MENTIONED_IN]->(d)
        SET r.context = $context`,
		map[string]any{"person_id": link.PersonID, "document_id": link.DocumentID, "context": link.Context})
	return err
}

// RepointPersonDocument moves a mention link to a new owner.
func (s *Neo4jStore) RepointPersonDocument(ctx context.Context, personID, documentID, newPersonID int64) error {
	_, err := s.run(ctx, `
        MATCH (old:Person {id: $old_id})-[r:MENTIONED_IN]->(d:Document {id: $doc_id})
        MATCH (new:Person {id: $new_id})
        MERGE (new)-[r2:MENTIONED_IN]->(d)
        SET r2.context = r.context
        DELETE r`,
		map[string]any{"old_id": personID, "doc_id": documentID, "new_id": newPersonID})
	return err
}

// DeletePersonDocument removes one mention link.
func (s *Neo4jStore) DeletePersonDocument(ctx context.Context, personID, documentID int64) error {
	_, err := s.run(ctx, `
        MATCH (p:Person {id: $person_id})-[r:MENTIONED_IN]->(d:Document {id: $doc_id})
        DELETE r`,
		map[string]any{"person_id": personID, "doc_id": documentID})
	return err
}

// DeletePersonDocumentsFor removes all mention links for the given persons.
func (s *Neo4jStore) DeletePersonDocumentsFor(ctx context.Context, personIDs []int64) (int64, error) {
	result, err := s.run(ctx, `
        MATCH (p:Person)-[r:MENTIONED_IN]->(:Document)
        WHERE p.id IN $ids
        DELETE r
        RETURN count(r) AS deleted`,
		map[string]any{"ids": personIDs})
	if err != nil {
		return 0, err
	}
	if len(result.Records) == 0 {
		return 0, nil
	}
	return asInt64(result.Records[0].AsMap()["deleted"]), nil
}

// CountPersonDocuments returns the number of documents linked to a person.
func (s *Neo4jStore) CountPersonDocuments(ctx context.Context, personID int64) (int, error) {
	result, err := s.run(ctx, `
        MATCH (p:Person {id: $id})-[r:MENTIONED_IN]->(:Document)
        RETURN count(r) AS total`,
		map[string]any{"id": personID})
	if err != nil {
		return 0, err
	}
	return int(asInt64(result.Records[0].AsMap()["total"])), nil
}

const connectionReturn = `r.id AS id, a.id AS person_id_1, b.id AS person_id_2,
       r.conn_type AS conn_type, r.description AS description, r.strength AS strength`

func connectionsFromResult(result *neo4j.EagerResult) []models.Connection {
	conns := make([]models.Connection, 0, len(result.Records))
	for _, rec := range result.Records {
		m := rec.AsMap()
		c := models.Connection{
			ID:          asInt64(m["id"]),
			PersonID1:   asInt64(m["person_id_1"]),
			PersonID2:   asInt64(m["person_id_2"]),
			Type:        asString(m["conn_type"]),
			Description: asString(m["description"]),
			Strength:    int(asInt64(m["strength"])),
		}
		c.Normalize()
		conns = append(conns, c)
	}
	return conns
}

// ListConnections returns all connections ordered by id.
func (s *Neo4jStore) ListConnections(ctx context.Context) ([]models.Connection, error) {
	result, err := s.run(ctx, `
        MATCH (a:Person)-[r:CONNECTED_TO]->(b:Person)
        RETURN `+connectionReturn+` ORDER BY r.id`, nil)
	if err != nil {
		return nil, err
	}
	return connectionsFromResult(result), nil
}

// ConnectionsFor returns connections touching any of the given persons.
func (s *Neo4jStore) ConnectionsFor(ctx context.Context, personIDs []int64) ([]models.Connection, error) {
	result, err := s.run(ctx, `
        MATCH (a:Person)-[r:CONNECTED_TO]->(b:Person)
        WHERE a.id IN $ids OR b.id IN $ids
        RETURN `+connectionReturn+` ORDER BY r.id`,
		map[string]any{"ids": personIDs})
	if err != nil {
		return nil, err
	}
	return connectionsFromResult(result), nil
}

// AddConnection inserts a connection, allocating an id when absent.
func (s *Neo4jStore) AddConnection(ctx context.Context, c *models.Connection) error {
	c.Normalize()
	if c.ID == 0 {
		id, err := s.nextID(ctx, "connection")
		if err != nil {
			return err
		}
		c.ID = id
	} else if err := s.bumpCounter(ctx, "connection", c.ID); err != nil {
		return err
	}
	_, err := s.run(ctx, `
        MATCH (a:Person {id: $p1}), (b:Person {id: $p2})
        CREATE (a)-[:CONNECTED_TO {id: $id, conn_type: $conn_type, description: $description, strength: $strength}]->(b)`,
		map[string]any{
			"p1": c.PersonID1, "p2": c.PersonID2, "id": c.ID,
			"conn_type": c.Type, "description": c.Description, "strength": c.Strength,
		})
	return err
}

// UpdateConnection rewrites a connection, including its endpoints.
// Endpoint changes recreate the relationship.
func (s *Neo4jStore) UpdateConnection(ctx context.Context, c models.Connection) error {
	_, err := s.run(ctx, `
        MATCH ()-[r:CONNECTED_TO {id: $id}]-()
        DELETE r`,
		map[string]any{"id": c.ID})
	if err != nil {
		return err
	}
	_, err = s.run(ctx, `
        MATCH (a:Person {id: $p1}), (b:Person {id: $p2})
        CREATE (a)-[:CONNECTED_TO {id: $id, conn_type: $conn_type, description: $description, strength: $strength}]->(b)`,
		map[string]any{
			"p1": c.PersonID1, "p2": c.PersonID2, "id": c.ID,
			"conn_type": c.Type, "description": c.Description, "strength": c.Strength,
		})
	return err
}

// DeleteConnection removes a connection by id.
func (s *Neo4jStore) DeleteConnection(ctx context.Context, id int64) error {
	_, err := s.run(ctx, `MATCH ()-[r:CONNECTED_TO {id: $id}]-() DELETE r`, map[string]any{"id": id})
	return err
}

// DeleteConnectionsFor removes connections touching any of the given persons.
func (s *Neo4jStore) DeleteConnectionsFor(ctx context.Context, personIDs []int64) (int64, error) {
	result, err := s.run(ctx, `
        MATCH (a:Person)-[r:CONNECTED_TO]->(b:Person)
        WHERE a.id IN $ids OR b.id IN $ids
        DELETE r
        RETURN count(r) AS deleted`,
		map[string]any{"ids": personIDs})
	if err != nil {
		return 0, err
	}
	if len(result.Records) == 0 {
		return 0, nil
	}
	return asInt64(result.Records[0].AsMap()["deleted"]), nil
}

// CountConnections returns the number of connections touching a person.
func (s *Neo4jStore) CountConnections(ctx context.Context, personID int64) (int, error) {
	result, err := s.run(ctx, `
        MATCH (p:Person {id: $id})-[r:CONNECTED_TO]-(:Person)
        RETURN count(r) AS total`,
		map[string]any{"id": personID})
	if err != nil {
		return 0, err
	}
	return int(asInt64(result.Records[0].AsMap()["total"])), nil
}

func eventsFromResult(result *neo4j.EagerResult) []models.TimelineEvent {
	events := make([]models.TimelineEvent, 0, len(result.Records))
	for _, rec := range result.Records {
		m := rec.AsMap()
		events = append(events, models.TimelineEvent{
			ID:        asInt64(m["id"]),
			Title:     asString(m["title"]),
			Date:      asString(m["date"]),
			PersonIDs: asInt64Slice(m["person_ids"]),
		})
	}
	return events
}

// ListTimelineEvents returns all timeline events ordered by id.
func (s *Neo4jStore) ListTimelineEvents(ctx context.Context) ([]models.TimelineEvent, error) {
	result, err := s.run(ctx, `
        MATCH (e:Event)
        RETURN e.id AS id, e.title AS title, e.date AS date, e.person_ids AS person_ids
        ORDER BY e.id`, nil)
	if err != nil {
		return nil, err
	}
	return eventsFromResult(result), nil
}

// TimelineEventsFor returns events referencing any of the given persons.
func (s *Neo4jStore) TimelineEventsFor(ctx context.Context, personIDs []int64) ([]models.TimelineEvent, error) {
	result, err := s.run(ctx, `
        MATCH (e:Event)
        WHERE any(pid IN e.person_ids WHERE pid IN $ids)
        RETURN e.id AS id, e.title AS title, e.date AS date, e.person_ids AS person_ids
        ORDER BY e.id`,
		map[string]any{"ids": personIDs})
	if err != nil {
		return nil, err
	}
	return eventsFromResult(result), nil
}

// AddTimelineEvent inserts a timeline event, allocating an id when absent.
func (s *Neo4jStore) AddTimelineEvent(ctx context.Context, ev *models.TimelineEvent) error {
	if ev.ID == 0 {
		id, err := s.nextID(ctx, "event")
		if err != nil {
			return err
		}
		ev.ID = id
	} else if err := s.bumpCounter(ctx, "event", ev.ID); err != nil {
		return err
	}
	ids := ev.PersonIDs
	if ids == nil {
		ids = []int64{}
	}
	_, err := s.run(ctx, `
        CREATE (e:Event {id: $id, title: $title, date: $date, person_ids: $person_ids})`,
		map[string]any{"id": ev.ID, "title": ev.Title, "date": ev.Date, "person_ids": ids})
	return err
}

// UpdateTimelineEventPersons replaces the person list of an event.
func (s *Neo4jStore) UpdateTimelineEventPersons(ctx context.Context, eventID int64, personIDs []int64) error {
	if personIDs == nil {
		personIDs = []int64{}
	}
	result, err := s.run(ctx, `
        MATCH (e:Event {id: $id})
        SET e.person_ids = $person_ids
        RETURN e.id AS id`,
		map[string]any{"id": eventID, "person_ids": personIDs})
	if err != nil {
		return err
	}
	if len(result.Records) == 0 {
		return fmt.Errorf("%w: event %d", ErrNotFound, eventID)
	}
	return nil
}

// Stats returns summary counts for the graph.
func (s *Neo4jStore) Stats(ctx context.Context) (*models.StoreStats, error) {
	result, err := s.run(ctx, `
        MATCH (p:Person)
        OPTIONAL MATCH (p)-[m:MENTIONED_IN]->(:Document)
        OPTIONAL MATCH (p)-[c:CONNECTED_TO]->(:Person)
        RETURN count(DISTINCT p) AS persons, count(DISTINCT m) AS links, count(DISTINCT c) AS conns`, nil)
	if err != nil {
		return nil, err
	}
	stats := &models.StoreStats{ByStatus: make(map[string]int64)}
	if len(result.Records) > 0 {
		m := result.Records[0].AsMap()
		stats.Persons = asInt64(m["persons"])
		stats.DocumentLinks = asInt64(m["links"])
		stats.Connections = asInt64(m["conns"])
	}

	events, err := s.run(ctx, `MATCH (e:Event) RETURN count(e) AS total`, nil)
	if err != nil {
		return nil, err
	}
	if len(events.Records) > 0 {
		stats.TimelineEvents = asInt64(events.Records[0].AsMap()["total"])
	}

	byStatus, err := s.run(ctx, `
        MATCH (p:Person) WHERE p.status IS NOT NULL AND p.status <> ''
        RETURN p.status AS status, count(p) AS total`, nil)
	if err != nil {
		return nil, err
	}
	for _, rec := range byStatus.Records {
		m := rec.AsMap()
		stats.ByStatus[asString(m["status"])] = asInt64(m["total"])
	}
	return stats, nil
}

// --- value coercion for driver results ---

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func asInt64Slice(v any) []int64 {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(items))
	for _, item := range items {
		out = append(out, asInt64(item))
	}
	return out
}
