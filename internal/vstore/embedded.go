package vstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Hidden-History/ai-memory-sub002/internal/logging"
	"github.com/Hidden-History/ai-memory-sub002/internal/model"
)

// EmbeddedClient is the local/dev vector store provider: one SQLite
// database with a table per collection, a cosine-distance scalar
// function registered by the build-specific driver (embedded_cgo.go for
// CGO, embedded_puregoo.go otherwise), and manual predicate pushdown for
// filters since neither driver implements a real vec0 index.
//
// The driver registration is split across embedded_cgo.go and
// embedded_puregoo.go by build tag so the sqlite-vec extension loads
// only when CGO is available.
type EmbeddedClient struct {
	db  *sql.DB
	dim map[model.Collection]int
}

// NewEmbeddedClient opens (creating if absent) a SQLite database at path
// and prepares it to hold the three fixed collections.
func NewEmbeddedClient(path string) (*EmbeddedClient, error) {
	db, err := openEmbeddedDB(path)
	if err != nil {
		return nil, fmt.Errorf("vstore: open embedded db: %w", err)
	}
	return &EmbeddedClient{db: db, dim: make(map[model.Collection]int)}, nil
}

func (e *EmbeddedClient) Close() error { return e.db.Close() }

func tableName(name model.Collection) string {
	return "pts_" + strings.ReplaceAll(string(name), "-", "_")
}

func (e *EmbeddedClient) EnsureCollection(ctx context.Context, name model.Collection, dim int, payloadIndexes []string) error {
	tbl := tableName(name)
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		vector BLOB NOT NULL,
		content TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		type TEXT NOT NULL,
		group_id TEXT NOT NULL,
		stored_at TEXT NOT NULL,
		is_current INTEGER NOT NULL,
		source_hook TEXT,
		file_path TEXT,
		embedding_status TEXT NOT NULL
	)`, tbl)
	if _, err := e.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("vstore: create table %s: %w", tbl, err)
	}
	for _, field := range payloadIndexes {
		idxName := fmt.Sprintf("idx_%s_%s", tbl, field)
		idxDDL := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", idxName, tbl, field)
		if _, err := e.db.ExecContext(ctx, idxDDL); err != nil {
			logging.StorageWarn("vstore: payload index %s on %s failed: %v", field, tbl, err)
		}
	}
	e.dim[name] = dim
	return nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func (e *EmbeddedClient) Upsert(ctx context.Context, name model.Collection, points []model.Point) error {
	if len(points) == 0 {
		return nil
	}
	tbl := tableName(name)
	stmt := fmt.Sprintf(`INSERT INTO %s
		(id, vector, content, content_hash, type, group_id, stored_at, is_current, source_hook, file_path, embedding_status)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
		vector=excluded.vector, content=excluded.content, content_hash=excluded.content_hash,
		type=excluded.type, group_id=excluded.group_id, stored_at=excluded.stored_at,
		is_current=excluded.is_current, source_hook=excluded.source_hook,
		file_path=excluded.file_path, embedding_status=excluded.embedding_status`, tbl)

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vstore: begin upsert tx: %w", err)
	}
	defer tx.Rollback()

	for _, p := range points {
		isCurrent := 0
		if p.IsCurrent {
			isCurrent = 1
		}
		if _, err := tx.ExecContext(ctx, stmt, p.ID, encodeVector(p.Vector), p.Content, p.ContentHash,
			string(p.Type), p.GroupID, p.StoredAt.Format(time.RFC3339Nano), isCurrent,
			string(p.SourceHook), p.FilePath, string(p.EmbeddingStatus)); err != nil {
			return fmt.Errorf("vstore: upsert point %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// buildWhere renders a Filter into a parameterized SQL WHERE clause.
func buildWhere(filter Filter) (string, []interface{}) {
	if len(filter.Terms) == 0 {
		return "", nil
	}
	var clauses []string
	var args []interface{}
	for _, t := range filter.Terms {
		switch t.Op {
		case OpEq:
			clauses = append(clauses, t.Field+" = ?")
		case OpGte:
			clauses = append(clauses, t.Field+" >= ?")
		case OpLte:
			clauses = append(clauses, t.Field+" <= ?")
		default:
			continue
		}
		args = append(args, t.Value)
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func scanPoint(rows *sql.Rows) (model.Point, error) {
	var p model.Point
	var vec []byte
	var storedAt string
	var isCurrent int
	if err := rows.Scan(&p.ID, &vec, &p.Content, &p.ContentHash, &p.Type, &p.GroupID,
		&storedAt, &isCurrent, &p.SourceHook, &p.FilePath, &p.EmbeddingStatus); err != nil {
		return p, err
	}
	p.Vector = decodeVector(vec)
	p.IsCurrent = isCurrent != 0
	if t, err := time.Parse(time.RFC3339Nano, storedAt); err == nil {
		p.StoredAt = t
	}
	return p, nil
}

func (e *EmbeddedClient) Scroll(ctx context.Context, name model.Collection, filter Filter, limit, offset int) ([]model.Point, error) {
	if err := validate(filter); err != nil {
		return nil, err
	}
	where, args := buildWhere(filter)
	tbl := tableName(name)
	query := fmt.Sprintf(`SELECT id, vector, content, content_hash, type, group_id, stored_at, is_current, source_hook, file_path, embedding_status
		FROM %s %s LIMIT ? OFFSET ?`, tbl, where)
	args = append(args, limit, offset)

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vstore: scroll %s: %w", tbl, err)
	}
	defer rows.Close()

	var out []model.Point
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		p.Collection = name
		out = append(out, p)
	}
	return out, rows.Err()
}

// Search scans every row matching filter and ranks by cosine similarity
// in Go, since this provider has no real ANN index. Acceptable at the
// scale this package targets (single project's memory, not a shared
// corpus); see DESIGN.md for the documented limitation.
func (e *EmbeddedClient) Search(ctx context.Context, name model.Collection, vector []float32, filter Filter, limit int) ([]ScoredPoint, error) {
	if err := validate(filter); err != nil {
		return nil, err
	}
	where, args := buildWhere(filter)
	tbl := tableName(name)
	query := fmt.Sprintf(`SELECT id, vector, content, content_hash, type, group_id, stored_at, is_current, source_hook, file_path, embedding_status
		FROM %s %s`, tbl, where)

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vstore: search %s: %w", tbl, err)
	}
	defer rows.Close()

	var candidates []ScoredPoint
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		p.Collection = name
		score := cosineSimilarity(vector, p.Vector)
		candidates = append(candidates, ScoredPoint{Point: p, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortScoredDesc(candidates)
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		af, bf := float64(a[i]), float64(b[i])
		dot += af * bf
		na += af * af
		nb += bf * bf
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func sortScoredDesc(s []ScoredPoint) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].Score > s[j-1].Score; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func (e *EmbeddedClient) GetByID(ctx context.Context, name model.Collection, id string) (*model.Point, error) {
	tbl := tableName(name)
	query := fmt.Sprintf(`SELECT id, vector, content, content_hash, type, group_id, stored_at, is_current, source_hook, file_path, embedding_status
		FROM %s WHERE id = ?`, tbl)
	rows, err := e.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("vstore: get %s/%s: %w", tbl, id, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	p, err := scanPoint(rows)
	if err != nil {
		return nil, err
	}
	p.Collection = name
	return &p, nil
}

func (e *EmbeddedClient) Delete(ctx context.Context, name model.Collection, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tbl := tableName(name)
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", tbl, placeholders)
	_, err := e.db.ExecContext(ctx, query, args...)
	return err
}

func (e *EmbeddedClient) Count(ctx context.Context, name model.Collection, filter Filter) (int64, error) {
	if err := validate(filter); err != nil {
		return 0, err
	}
	where, args := buildWhere(filter)
	tbl := tableName(name)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", tbl, where)
	var count int64
	if err := e.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("vstore: count %s: %w", tbl, err)
	}
	return count, nil
}

func (e *EmbeddedClient) CollectionInfo(ctx context.Context, name model.Collection) (CollectionInfo, error) {
	tbl := tableName(name)
	var count int64
	if err := e.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", tbl)).Scan(&count); err != nil {
		return CollectionInfo{}, fmt.Errorf("vstore: info %s: %w", tbl, err)
	}
	return CollectionInfo{Name: string(name), Dimensions: e.dim[name], PointCount: count}, nil
}
