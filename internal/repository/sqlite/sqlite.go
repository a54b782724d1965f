package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"smiscope/internal/domain"
	"smiscope/internal/repository"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.Repository = (*Repository)(nil)

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer; one connection also keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %q: %w", p, err)
		}
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		scope TEXT NOT NULL DEFAULT '',
		local_id TEXT NOT NULL DEFAULT '',
		label TEXT NOT NULL,
		properties JSON,
		source TEXT,
		last_seen DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS edges (
		id TEXT PRIMARY KEY,
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		type TEXT NOT NULL,
		properties JSON,
		source TEXT,
		FOREIGN KEY (from_id) REFERENCES nodes(id) ON DELETE CASCADE,
		FOREIGN KEY (to_id) REFERENCES nodes(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		profile TEXT,
		status TEXT NOT NULL,
		error TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		nodes INTEGER NOT NULL DEFAULT 0,
		edges INTEGER NOT NULL DEFAULT 0,
		stats JSON
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_source ON nodes(source);
	CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type);
	CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id);
	CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source);
	CREATE INDEX IF NOT EXISTS idx_runs_target ON runs(target, started_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

// ============================================================================
// Nodes and edges
// ============================================================================

// GetNode returns a node by id, or nil when it does not exist
func (r *Repository) GetNode(ctx context.Context, id string) (*domain.Node, error) {
	var row nodeRow
	err := r.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id).Scan(row.scanArgs()...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node %s: %w", id, err)
	}
	return row.toDomain()
}

// ListNodes returns nodes filtered by type and source; empty filters match all
func (r *Repository) ListNodes(ctx context.Context, nodeType, source string) ([]domain.Node, error) {
	query, args := filtered(`SELECT `+nodeColumns+` FROM nodes`, nodeType, source)
	rows, err := r.db.QueryContext(ctx, query+` ORDER BY type, scope, local_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []domain.Node
	for rows.Next() {
		var row nodeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		node, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", row.ID, err)
		}
		nodes = append(nodes, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}
	return nodes, nil
}

// ListEdges returns edges filtered by type and source; empty filters match all
func (r *Repository) ListEdges(ctx context.Context, edgeType, source string) ([]domain.Edge, error) {
	query, args := filtered(`SELECT `+edgeColumns+` FROM edges`, edgeType, source)
	rows, err := r.db.QueryContext(ctx, query+` ORDER BY type, from_id, to_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []domain.Edge
	for rows.Next() {
		var row edgeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edge, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("edge %s: %w", row.ID, err)
		}
		edges = append(edges, *edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}
	return edges, nil
}

// filtered appends type/source conditions to a SELECT
func filtered(base, typ, source string) (string, []any) {
	var conds []string
	var args []any
	if typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}
	if source != "" {
		conds = append(conds, "source = ?")
		args = append(args, source)
	}
	if len(conds) == 0 {
		return base, nil
	}
	return base + " WHERE " + strings.Join(conds, " AND "), args
}

// ListSources returns every source that has stored nodes
func (r *Repository) ListSources(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT source FROM nodes WHERE source IS NOT NULL ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// ImportFragment upserts a fragment in one transaction. With StrategyReplace,
// nodes and edges of the fragment's source that the fragment no longer
// contains are removed.
func (r *Repository) ImportFragment(ctx context.Context, fragment *domain.GraphFragment, strategy string) (map[string]int, error) {
	if strategy != repository.StrategyMerge && strategy != repository.StrategyReplace {
		return nil, fmt.Errorf("unknown import strategy %q", strategy)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result := map[string]int{
		"nodes_created": 0,
		"nodes_updated": 0,
		"nodes_removed": 0,
		"edges_created": 0,
		"edges_updated": 0,
		"edges_removed": 0,
	}

	source := fragment.Source
	nodeIDs := make(map[string]struct{}, len(fragment.Nodes))
	for i := range fragment.Nodes {
		node := &fragment.Nodes[i]
		nodeIDs[node.ID] = struct{}{}

		exists, err := rowExists(ctx, tx, "nodes", node.ID)
		if err != nil {
			return nil, err
		}
		args, err := nodeInsertArgs(node, source)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO nodes (`+nodeColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				type = excluded.type,
				scope = excluded.scope,
				local_id = excluded.local_id,
				label = excluded.label,
				properties = excluded.properties,
				source = excluded.source,
				last_seen = excluded.last_seen,
				updated_at = excluded.updated_at
		`, args...); err != nil {
			return nil, fmt.Errorf("failed to upsert node %s: %w", node.ID, err)
		}
		if exists {
			result["nodes_updated"]++
		} else {
			result["nodes_created"]++
		}
	}

	edgeIDs := make(map[string]struct{}, len(fragment.Edges))
	for i := range fragment.Edges {
		edge := &fragment.Edges[i]
		edgeIDs[edge.ID] = struct{}{}

		exists, err := rowExists(ctx, tx, "edges", edge.ID)
		if err != nil {
			return nil, err
		}
		args, err := edgeInsertArgs(edge, source)
		if err != nil {
			return nil, fmt.Errorf("edge %s: %w", edge.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO edges (`+edgeColumns+`)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				from_id = excluded.from_id,
				to_id = excluded.to_id,
				type = excluded.type,
				properties = excluded.properties,
				source = excluded.source
		`, args...); err != nil {
			return nil, fmt.Errorf("failed to upsert edge %s: %w", edge.ID, err)
		}
		if exists {
			result["edges_updated"]++
		} else {
			result["edges_created"]++
		}
	}

	if strategy == repository.StrategyReplace {
		removed, err := removeStale(ctx, tx, "edges", source, edgeIDs)
		if err != nil {
			return nil, err
		}
		result["edges_removed"] = removed

		removed, err = removeStale(ctx, tx, "nodes", source, nodeIDs)
		if err != nil {
			return nil, err
		}
		result["nodes_removed"] = removed
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}
	return result, nil
}

func rowExists(ctx context.Context, tx *sql.Tx, table, id string) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check %s %s: %w", table, id, err)
	}
	return n > 0, nil
}

// removeStale deletes rows of a source whose ids are not in keep
func removeStale(ctx context.Context, tx *sql.Tx, table, source string, keep map[string]struct{}) (int, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM `+table+` WHERE source IS ?`, stringToNull(source))
	if err != nil {
		return 0, fmt.Errorf("failed to query %s of %s: %w", table, source, err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan %s id: %w", table, err)
		}
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("failed to delete %s %s: %w", table, id, err)
		}
	}
	return len(stale), nil
}

// ExportFragment returns the stored graph of one source, or everything when source is empty
func (r *Repository) ExportFragment(ctx context.Context, source string) (*domain.GraphFragment, error) {
	nodes, err := r.ListNodes(ctx, "", source)
	if err != nil {
		return nil, err
	}
	edges, err := r.ListEdges(ctx, "", source)
	if err != nil {
		return nil, err
	}

	fragment := domain.NewGraphFragment(source)
	fragment.Nodes = append(fragment.Nodes, nodes...)
	fragment.Edges = append(fragment.Edges, edges...)
	return fragment, nil
}

// DeleteSource removes every node and edge of a source
func (r *Repository) DeleteSource(ctx context.Context, source string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE source = ?`, source); err != nil {
		return fmt.Errorf("failed to delete edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE source = ?`, source); err != nil {
		return fmt.Errorf("failed to delete nodes: %w", err)
	}
	return tx.Commit()
}

// ============================================================================
// Runs
// ============================================================================

// RecordRun stores a run, replacing any earlier record with the same id
func (r *Repository) RecordRun(ctx context.Context, run *domain.DiscoveryRun) error {
	args, err := runInsertArgs(run)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun returns a run by id, or nil when it does not exist
func (r *Repository) GetRun(ctx context.Context, id string) (*domain.DiscoveryRun, error) {
	var row runRow
	err := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id).Scan(row.scanArgs()...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return row.toDomain()
}

// ListRuns returns the newest runs first, optionally for one target.
// A limit of zero or less returns every run.
func (r *Repository) ListRuns(ctx context.Context, target string, limit int) ([]domain.DiscoveryRun, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if target != "" {
		query += ` WHERE target = ?`
		args = append(args, target)
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.DiscoveryRun
	for rows.Next() {
		var row runRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", row.ID, err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
