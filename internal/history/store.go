// Package history persists scorecard runs and audit events in SQLite.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"scorecard/internal/scoring"
)

// ErrRunNotFound is returned when no run matches the lookup.
var ErrRunNotFound = errors.New("run not found")

// Node types stored per run.
const (
	NodeOrganization = "organization"
	NodePillar       = "pillar"
	NodeBusinessUnit = "business_unit"
	NodeObjective    = "objective"
	NodeKPI          = "kpi"
	NodeMeasure      = "measure"
)

// Store manages run history in SQLite.
type Store struct {
	DBPath string
	db     *sql.DB
	log    logrus.FieldLogger
	now    func() time.Time
}

// Run is one recorded scorecard computation.
type Run struct {
	ID           string
	Period       string
	CreatedAt    time.Time
	Source       string
	Organization *float64
	ReportJSON   string
}

// Scorecard decodes the stored report.
func (r Run) Scorecard() (*scoring.Scorecard, error) {
	return scoring.DecodeReport([]byte(r.ReportJSON))
}

// NodePoint is the value of one node in one run.
type NodePoint struct {
	RunID     string
	Period    string
	CreatedAt time.Time
	Value     *float64
	Invalid   bool
}

// Open opens or creates the history database.
func Open(path string, log logrus.FieldLogger) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve history db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history db dir: %w", err)
	}

	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if log == nil {
		l := logrus.New()
		l.SetOutput(os.Stderr)
		log = l
	}

	store := &Store{
		DBPath: absPath,
		db:     db,
		log:    log.WithField("component", "history"),
		now:    time.Now,
	}

	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	period TEXT NOT NULL,
	created_at TEXT NOT NULL,
	source TEXT NOT NULL,
	organization REAL,
	report_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_period_created ON runs(period, created_at);

CREATE TABLE IF NOT EXISTS node_scores (
	run_id TEXT NOT NULL,
	period TEXT NOT NULL,
	node_type TEXT NOT NULL,
	code TEXT NOT NULL,
	value REAL,
	invalid INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, node_type, code)
);

CREATE INDEX IF NOT EXISTS idx_node_scores_node ON node_scores(node_type, code, period);

CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts TEXT NOT NULL,
	actor TEXT NOT NULL,
	type TEXT NOT NULL,
	payload_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	return nil
}

type nodeRow struct {
	nodeType string
	code     string
	value    scoring.Value
}

func nodeRows(sc *scoring.Scorecard) []nodeRow {
	rows := []nodeRow{{nodeType: NodeOrganization, code: NodeOrganization, value: sc.Organization}}
	for _, p := range sc.Pillars {
		rows = append(rows, nodeRow{NodePillar, p.Code, p.Score})
	}
	for _, bu := range sc.BusinessUnits {
		rows = append(rows, nodeRow{NodeBusinessUnit, bu.Unit, bu.Score})
	}
	for _, o := range sc.Objectives {
		rows = append(rows, nodeRow{NodeObjective, o.Code, o.Score})
	}
	for _, k := range sc.KPIs {
		rows = append(rows, nodeRow{NodeKPI, k.Code, k.Achievement})
	}
	for _, m := range sc.Measures {
		rows = append(rows, nodeRow{NodeMeasure, m.Code, m.Value})
	}
	return rows
}

// RecordRun stores a scorecard and the value of every node in it.
func (s *Store) RecordRun(sc *scoring.Scorecard, source string) (Run, error) {
	if sc == nil {
		return Run{}, fmt.Errorf("scorecard is required")
	}
	reportJSON, err := sc.JSON()
	if err != nil {
		return Run{}, fmt.Errorf("marshal scorecard: %w", err)
	}

	run := Run{
		ID:           uuid.NewString(),
		Period:       sc.Period,
		CreatedAt:    s.now().UTC(),
		Source:       source,
		Organization: sc.Organization.Value,
		ReportJSON:   string(reportJSON),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Run{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, period, created_at, source, organization, report_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Period, run.CreatedAt.Format(timeLayout), run.Source, nullFloat(run.Organization), run.ReportJSON)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}

	rows := nodeRows(sc)
	for _, row := range rows {
		_, err = tx.Exec(`
			INSERT OR REPLACE INTO node_scores (run_id, period, node_type, code, value, invalid)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, run.Period, row.nodeType, row.code, nullFloat(row.value.Value), boolInt(row.value.Invalid))
		if err != nil {
			return Run{}, fmt.Errorf("insert node score %s/%s: %w", row.nodeType, row.code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("commit transaction: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"run_id": run.ID,
		"period": run.Period,
		"nodes":  len(rows),
	}).Debug("Recorded scorecard run")
	return run, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = "id, period, created_at, source, organization, report_json"

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recent run for period.
func (s *Store) LatestRun(period string) (*Run, error) {
	row := s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE period = ? ORDER BY created_at DESC LIMIT 1", period)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: period %s", ErrRunNotFound, period)
	}
	if err != nil {
		return nil, fmt.Errorf("get latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query("SELECT "+runColumns+" FROM runs ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// NodeHistory returns the recorded values of one node, newest period first.
func (s *Store) NodeHistory(nodeType, code string, limit int) ([]NodePoint, error) {
	if limit <= 0 {
		limit = 24
	}
	rows, err := s.db.Query(`
		SELECT n.run_id, n.period, r.created_at, n.value, n.invalid
		FROM node_scores n
		JOIN runs r ON r.id = n.run_id
		WHERE n.node_type = ? AND n.code = ?
		ORDER BY n.period DESC, r.created_at DESC
		LIMIT ?
	`, nodeType, code, limit)
	if err != nil {
		return nil, fmt.Errorf("query node history: %w", err)
	}
	defer rows.Close()

	var points []NodePoint
	for rows.Next() {
		var p NodePoint
		var createdAt string
		var value sql.NullFloat64
		if err := rows.Scan(&p.RunID, &p.Period, &createdAt, &value, &p.Invalid); err != nil {
			return nil, fmt.Errorf("scan node history: %w", err)
		}
		p.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		if value.Valid {
			v := value.Float64
			p.Value = &v
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate node history: %w", err)
	}
	return points, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var createdAt string
	var organization sql.NullFloat64
	if err := row.Scan(&run.ID, &run.Period, &createdAt, &run.Source, &organization, &run.ReportJSON); err != nil {
		return nil, err
	}
	run.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	if organization.Valid {
		v := organization.Float64
		run.Organization = &v
	}
	return &run, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
