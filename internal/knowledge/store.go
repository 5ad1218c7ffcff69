// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package knowledge persists substitution rules and the facility index in a
// SQLite database, and evolves rule confidence from match feedback.
package knowledge

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/helpfulengineering/matching-engine/pkg/types"
)

const (
	rulesDir = "rules"
	indexDir = "index"
	dbFile   = "ome.db"

	// priorWeight is the pseudo-count weight of a rule's base confidence
	// when blending in accept/reject feedback.
	priorWeight = 5.0
)

// Store manages the knowledge base SQLite database.
type Store struct {
	db           *sql.DB
	knowledgeDir string
	maxResults   int
}

// NewStore opens or creates the knowledge base SQLite database at
// knowledgeDir/index/ome.db, creating the schema if it does not exist.
func NewStore(cfg types.KnowledgeBaseConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.KnowledgeDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:           db,
		knowledgeDir: cfg.KnowledgeDir,
		maxResults:   maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS rules (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			original TEXT NOT NULL,
			substitute TEXT NOT NULL,
			base_confidence REAL NOT NULL,
			confidence REAL NOT NULL,
			constraints TEXT,
			notes TEXT,
			accepted INTEGER NOT NULL DEFAULT 0,
			rejected INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_kind_original ON rules(kind, original)`,
		`CREATE TABLE IF NOT EXISTS facilities (
			id TEXT PRIMARY KEY,
			name TEXT,
			city TEXT,
			country TEXT,
			processes TEXT,
			materials TEXT,
			equipment_count INTEGER,
			record_path TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			source_path TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='rules_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE rules_fts USING fts5(original, substitute, notes, content=rules, content_rowid=rowid)`,
			`CREATE TRIGGER rules_ai AFTER INSERT ON rules BEGIN
				INSERT INTO rules_fts(rowid, original, substitute, notes) VALUES (new.rowid, new.original, new.substitute, new.notes);
			END`,
			`CREATE TRIGGER rules_ad AFTER DELETE ON rules BEGIN
				INSERT INTO rules_fts(rules_fts, rowid, original, substitute, notes) VALUES('delete', old.rowid, old.original, old.substitute, old.notes);
			END`,
			`CREATE TRIGGER rules_au AFTER UPDATE ON rules BEGIN
				INSERT INTO rules_fts(rules_fts, rowid, original, substitute, notes) VALUES('delete', old.rowid, old.original, old.substitute, old.notes);
				INSERT INTO rules_fts(rowid, original, substitute, notes) VALUES (new.rowid, new.original, new.substitute, new.notes);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// RuleID derives a stable rule identifier from kind, original, and
// substitute: the first 12 hex characters of their SHA-256.
func RuleID(kind types.ResourceType, original, substitute string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte(original))
	h.Write([]byte(substitute))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// evolvedConfidence blends a rule's base confidence with feedback counts:
// the base acts as priorWeight pseudo-observations, each acceptance adds a
// positive observation, each rejection a negative one.
func evolvedConfidence(base float64, accepted, rejected int) float64 {
	v := (base*priorWeight + float64(accepted)) / (priorWeight + float64(accepted) + float64(rejected))
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RuleFile is the on-disk format for curated rule sets under
// knowledge/rules/.
type RuleFile struct {
	Rules []types.SubstitutionRule `yaml:"rules"`
}

// IngestSummary holds counts from a knowledge base ingestion run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest reads rule YAML files from knowledgeDir/rules/ and populates the
// database. Unchanged files are skipped by modification time; changed files
// re-assert base confidence while feedback counters survive. On success it
// refreshes export.yaml.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	ruleDir := filepath.Join(s.knowledgeDir, rulesDir)

	entries, err := os.ReadDir(ruleDir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading rules directory %s: %w", ruleDir, err)
	}

	var summary IngestSummary

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		filePath := filepath.Join(ruleDir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", entry.Name(), err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE source_path = ?`, filePath,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", entry.Name())
			summary.Skipped++
			continue
		}

		isUpdate := err == nil

		data, err := os.ReadFile(filePath)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", entry.Name(), err)
			summary.Failed++
			continue
		}

		var rf RuleFile
		if err := yaml.Unmarshal(data, &rf); err != nil {
			fmt.Fprintf(w, "failed  %s: parse error: %v\n", entry.Name(), err)
			summary.Failed++
			continue
		}

		if err := s.ingestRules(ctx, filePath, rf.Rules, modTime); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", entry.Name(), err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d rules)\n", entry.Name(), len(rf.Rules))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d rules)\n", entry.Name(), len(rf.Rules))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	if summary.Indexed > 0 || summary.Updated > 0 {
		if err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}

	return summary, nil
}

func (s *Store) ingestRules(ctx context.Context, sourcePath string, rules []types.SubstitutionRule, modTime string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rules (id, kind, original, substitute, base_confidence, confidence, constraints, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			kind=excluded.kind, original=excluded.original, substitute=excluded.substitute,
			base_confidence=excluded.base_confidence, constraints=excluded.constraints,
			notes=excluded.notes,
			confidence=(excluded.base_confidence*`+fmt.Sprintf("%g", priorWeight)+` + rules.accepted)
				/ (`+fmt.Sprintf("%g", priorWeight)+` + rules.accepted + rules.rejected)`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for i, rule := range rules {
		if rule.Original == "" || rule.Substitute == "" || rule.Kind == "" {
			return fmt.Errorf("rule %d: kind, original, and substitute are required", i)
		}

		id := rule.ID
		if id == "" {
			id = RuleID(rule.Kind, rule.Original, rule.Substitute)
		}

		constraintsJSON, _ := json.Marshal(rule.Constraints)
		confidence := evolvedConfidence(rule.Confidence, 0, 0)

		if _, err := stmt.ExecContext(ctx,
			id, string(rule.Kind), rule.Original, rule.Substitute,
			rule.Confidence, confidence, string(constraintsJSON), rule.Notes,
		); err != nil {
			return fmt.Errorf("upserting rule %s: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO indexing_status (source_path, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(source_path) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		sourcePath, modTime,
	); err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}

	return tx.Commit()
}

// IndexFacilities upserts facility summaries into the facility index.
func (s *Store) IndexFacilities(ctx context.Context, facilities []types.OKWFacility, recordPaths map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO facilities (id, name, city, country, processes, materials, equipment_count, record_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, city=excluded.city, country=excluded.country,
			processes=excluded.processes, materials=excluded.materials,
			equipment_count=excluded.equipment_count, record_path=excluded.record_path`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, f := range facilities {
		processesJSON, _ := json.Marshal(f.Processes)
		materialsJSON, _ := json.Marshal(f.Materials)
		if _, err := stmt.ExecContext(ctx,
			f.ID, f.Name, f.Location.City, f.Location.Country,
			string(processesJSON), string(materialsJSON), len(f.Equipment),
			recordPaths[f.ID],
		); err != nil {
			return fmt.Errorf("upserting facility %s: %w", f.ID, err)
		}
	}

	return tx.Commit()
}

// FacilitySummary is one row of the facility index.
type FacilitySummary struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	City           string   `json:"city,omitempty" yaml:"city,omitempty"`
	Country        string   `json:"country,omitempty" yaml:"country,omitempty"`
	Processes      []string `json:"processes,omitempty" yaml:"processes,omitempty"`
	Materials      []string `json:"materials,omitempty" yaml:"materials,omitempty"`
	EquipmentCount int      `json:"equipment_count" yaml:"equipment_count"`
	RecordPath     string   `json:"record_path,omitempty" yaml:"record_path,omitempty"`
}

// ListFacilities returns the facility index ordered by ID.
func (s *Store) ListFacilities(ctx context.Context) ([]FacilitySummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, city, country, processes, materials, equipment_count, record_path
		 FROM facilities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying facilities: %w", err)
	}
	defer rows.Close()

	var out []FacilitySummary
	for rows.Next() {
		var (
			fs                       FacilitySummary
			processesJSON, matsJSON  sql.NullString
			city, country, recPath   sql.NullString
		)
		if err := rows.Scan(&fs.ID, &fs.Name, &city, &country, &processesJSON, &matsJSON, &fs.EquipmentCount, &recPath); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		fs.City, fs.Country, fs.RecordPath = city.String, country.String, recPath.String
		if processesJSON.Valid {
			json.Unmarshal([]byte(processesJSON.String), &fs.Processes)
		}
		if matsJSON.Valid {
			json.Unmarshal([]byte(matsJSON.String), &fs.Materials)
		}
		out = append(out, fs)
	}

	return out, rows.Err()
}
