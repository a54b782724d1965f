package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"smiscope/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullToTimePtr safely converts sql.NullTime to *time.Time
func nullToTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// timePtrToNull safely converts *time.Time to sql.NullTime
func timePtrToNull(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target any) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals a value to a nullable JSON string.
// Returns empty NullString for nil or empty maps.
func marshalToNull(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}

	// Handle empty maps - don't store "{}"
	if m, ok := v.(map[string]any); ok && len(m) == 0 {
		return sql.NullString{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a new column to the nodes table:
// 1. Add field to nodeRow struct (below)
// 2. Update scanArgs() - APPEND to end to match column order
// 3. Update nodeColumns constant - APPEND to end
// 4. Update toDomain() to map new field to domain.Node
// 5. Update nodeInsertArgs() and the upsert statement
// 6. Update relevant tests
//
// CRITICAL: Column order must match between:
// - nodeColumns constant
// - scanArgs() return slice
// - All SELECT queries using nodeColumns
//
// Same pattern applies to edges and runs.

// ============================================================================
// Node Row Scanner
// ============================================================================

// nodeRow holds all columns from a node query for scanning
type nodeRow struct {
	ID             string
	Type           string
	Scope          string
	LocalID        string
	Label          string
	PropertiesJSON sql.NullString
	Source         sql.NullString
	LastSeen       sql.NullTime
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match nodeColumns order exactly:
// id, type, scope, local_id, label, properties, source, last_seen, created_at, updated_at
func (r *nodeRow) scanArgs() []any {
	return []any{
		&r.ID,             // 1
		&r.Type,           // 2
		&r.Scope,          // 3
		&r.LocalID,        // 4
		&r.Label,          // 5
		&r.PropertiesJSON, // 6
		&r.Source,         // 7
		&r.LastSeen,       // 8
		&r.CreatedAt,      // 9
		&r.UpdatedAt,      // 10
	}
}

// toDomain converts the scanned row to a domain.Node
func (r *nodeRow) toDomain() (*domain.Node, error) {
	node := &domain.Node{
		ID:        r.ID,
		Type:      domain.NodeType(r.Type),
		Key:       domain.Reference{Scope: r.Scope, LocalID: r.LocalID},
		Label:     r.Label,
		Source:    nullToString(r.Source),
		LastSeen:  nullToTimePtr(r.LastSeen),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}

	if err := unmarshalJSONField(r.PropertiesJSON, &node.Properties); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}

	return node, nil
}

// nodeColumns returns the SELECT column list for node queries
const nodeColumns = `id, type, scope, local_id, label, properties, source,
	last_seen, created_at, updated_at`

// ============================================================================
// Edge Row Scanner
// ============================================================================

// edgeRow holds all columns from an edge query for scanning
type edgeRow struct {
	ID             string
	FromID         string
	ToID           string
	Type           string
	PropertiesJSON sql.NullString
	Source         sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match edgeColumns order exactly:
// id, from_id, to_id, type, properties, source
func (r *edgeRow) scanArgs() []any {
	return []any{
		&r.ID,             // 1
		&r.FromID,         // 2
		&r.ToID,           // 3
		&r.Type,           // 4
		&r.PropertiesJSON, // 5
		&r.Source,         // 6
	}
}

// toDomain converts the scanned row to a domain.Edge
func (r *edgeRow) toDomain() (*domain.Edge, error) {
	edge := &domain.Edge{
		ID:     r.ID,
		FromID: r.FromID,
		ToID:   r.ToID,
		Type:   domain.EdgeType(r.Type),
	}

	if err := unmarshalJSONField(r.PropertiesJSON, &edge.Properties); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}

	return edge, nil
}

// edgeColumns returns the SELECT column list for edge queries
const edgeColumns = `id, from_id, to_id, type, properties, source`

// ============================================================================
// Run Row Scanner
// ============================================================================

// runRow holds all columns from a run query for scanning
type runRow struct {
	ID         string
	Target     string
	Profile    sql.NullString
	Status     string
	Error      sql.NullString
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Nodes      int
	Edges      int
	StatsJSON  sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match runColumns order exactly:
// id, target, profile, status, error, started_at, finished_at, nodes, edges, stats
func (r *runRow) scanArgs() []any {
	return []any{
		&r.ID,         // 1
		&r.Target,     // 2
		&r.Profile,    // 3
		&r.Status,     // 4
		&r.Error,      // 5
		&r.StartedAt,  // 6
		&r.FinishedAt, // 7
		&r.Nodes,      // 8
		&r.Edges,      // 9
		&r.StatsJSON,  // 10
	}
}

// toDomain converts the scanned row to a domain.DiscoveryRun
func (r *runRow) toDomain() (*domain.DiscoveryRun, error) {
	run := &domain.DiscoveryRun{
		ID:        r.ID,
		Target:    r.Target,
		Profile:   nullToString(r.Profile),
		Status:    domain.RunStatus(r.Status),
		Error:     nullToString(r.Error),
		StartedAt: r.StartedAt,
		Nodes:     r.Nodes,
		Edges:     r.Edges,
	}
	if r.FinishedAt.Valid {
		run.FinishedAt = r.FinishedAt.Time
	}

	if err := unmarshalJSONField(r.StatsJSON, &run.Stats); err != nil {
		return nil, fmt.Errorf("unmarshal stats: %w", err)
	}

	return run, nil
}

// runColumns returns the SELECT column list for run queries
const runColumns = `id, target, profile, status, error, started_at, finished_at, nodes, edges, stats`

// ============================================================================
// Write Helpers
// ============================================================================

// nodeInsertArgs prepares arguments for node INSERT/UPSERT
// Returns: id, type, scope, local_id, label, properties, source, last_seen, created_at, updated_at
func nodeInsertArgs(node *domain.Node, source string) ([]any, error) {
	propsJSON, err := marshalToNull(node.Properties)
	if err != nil {
		return nil, fmt.Errorf("marshal properties: %w", err)
	}

	if source == "" {
		source = node.Source
	}

	now := time.Now().UTC()
	created, updated := node.CreatedAt, node.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = now
	}

	return []any{
		node.ID,
		string(node.Type),
		node.Key.Scope,
		node.Key.LocalID,
		node.Label,
		propsJSON,
		stringToNull(source),
		timePtrToNull(node.LastSeen),
		created,
		updated,
	}, nil
}

// edgeInsertArgs prepares arguments for edge INSERT/UPSERT
// Returns: id, from_id, to_id, type, properties, source
func edgeInsertArgs(edge *domain.Edge, source string) ([]any, error) {
	propsJSON, err := marshalToNull(edge.Properties)
	if err != nil {
		return nil, fmt.Errorf("marshal properties: %w", err)
	}

	return []any{
		edge.ID,
		edge.FromID,
		edge.ToID,
		string(edge.Type),
		propsJSON,
		stringToNull(source),
	}, nil
}

// runInsertArgs prepares arguments for run INSERT
func runInsertArgs(run *domain.DiscoveryRun) ([]any, error) {
	statsJSON, err := marshalToNull(run.Stats)
	if err != nil {
		return nil, fmt.Errorf("marshal stats: %w", err)
	}

	var finished sql.NullTime
	if !run.FinishedAt.IsZero() {
		finished = sql.NullTime{Time: run.FinishedAt, Valid: true}
	}

	return []any{
		run.ID,
		run.Target,
		stringToNull(run.Profile),
		string(run.Status),
		stringToNull(run.Error),
		run.StartedAt,
		finished,
		run.Nodes,
		run.Edges,
		statsJSON,
	}, nil
}
