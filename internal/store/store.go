package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS rollouts (
	rollout_id  TEXT PRIMARY KEY,
	created_at  TEXT NOT NULL,
	horizon     INTEGER NOT NULL,
	batch       INTEGER NOT NULL,
	num_states  TEXT NOT NULL,
	steps       INTEGER NOT NULL DEFAULT 0,
	meta_json   TEXT
);

CREATE TABLE IF NOT EXISTS rollout_steps (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	rollout_id    TEXT NOT NULL,
	step          INTEGER NOT NULL,
	observations  TEXT NOT NULL,
	actions       TEXT NOT NULL,
	beliefs       BLOB NOT NULL,
	created_at    TEXT NOT NULL,
	UNIQUE(rollout_id, step),
	FOREIGN KEY (rollout_id) REFERENCES rollouts(rollout_id)
);

CREATE TABLE IF NOT EXISTS provenance_log (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	rollout_id         TEXT NOT NULL,
	step               INTEGER NOT NULL,
	decision           TEXT NOT NULL,
	reason             TEXT,
	posterior_entropy  REAL,
	converged          INTEGER NOT NULL DEFAULT 1,
	created_at         TEXT NOT NULL,
	FOREIGN KEY (rollout_id) REFERENCES rollouts(rollout_id)
);

CREATE TABLE IF NOT EXISTS active_rollout (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	rollout_id  TEXT NOT NULL,
	FOREIGN KEY (rollout_id) REFERENCES rollouts(rollout_id)
);
`

// #endregion schema

// #region store-struct

// Store persists rollout histories and their provenance in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region create-rollout

// CreateRollout registers a new rollout and marks it active. metaJSON may
// carry caller-defined context (e.g. the environment the rollout was recorded
// against) and may be empty.
func (s *Store) CreateRollout(horizon, batch int, numStates []int, metaJSON string) (RolloutRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	statesJSON, err := json.Marshal(numStates)
	if err != nil {
		return RolloutRecord{}, fmt.Errorf("marshal num states: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return RolloutRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO rollouts (rollout_id, created_at, horizon, batch, num_states, meta_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, now.Format(time.RFC3339Nano), horizon, batch, string(statesJSON), nullIfEmpty(metaJSON),
	)
	if err != nil {
		return RolloutRecord{}, fmt.Errorf("insert rollout: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_rollout (id, rollout_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET rollout_id = excluded.rollout_id`,
		id,
	)
	if err != nil {
		return RolloutRecord{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return RolloutRecord{}, fmt.Errorf("commit: %w", err)
	}

	return RolloutRecord{
		RolloutID: id,
		CreatedAt: now,
		Horizon:   horizon,
		Batch:     batch,
		NumStates: numStates,
		MetaJSON:  metaJSON,
	}, nil
}

// #endregion create-rollout

// #region append-step

// AppendStep persists one timestep and bumps the rollout's step count.
func (s *Store) AppendStep(rolloutID string, step int, obs, actions [][]int, beliefs [][][]float64) error {
	obsJSON, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshal observations: %w", err)
	}
	actJSON, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO rollout_steps (rollout_id, step, observations, actions, beliefs, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rolloutID, step, string(obsJSON), string(actJSON), encodeBeliefs(beliefs),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert step: %w", err)
	}

	_, err = tx.Exec(`UPDATE rollouts SET steps = steps + 1 WHERE rollout_id = ?`, rolloutID)
	if err != nil {
		return fmt.Errorf("bump steps: %w", err)
	}

	return tx.Commit()
}

// #endregion append-step

// #region get-rollout

// GetRollout retrieves one rollout's metadata.
func (s *Store) GetRollout(id string) (RolloutRecord, error) {
	var rec RolloutRecord
	var createdStr, statesJSON string
	var metaJSON sql.NullString
	err := s.db.QueryRow(
		`SELECT rollout_id, created_at, horizon, batch, num_states, steps, meta_json
		 FROM rollouts WHERE rollout_id = ?`, id,
	).Scan(&rec.RolloutID, &createdStr, &rec.Horizon, &rec.Batch, &statesJSON, &rec.Steps, &metaJSON)
	if err != nil {
		return RolloutRecord{}, fmt.Errorf("get rollout %s: %w", id, err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	if err := json.Unmarshal([]byte(statesJSON), &rec.NumStates); err != nil {
		return RolloutRecord{}, fmt.Errorf("unmarshal num states: %w", err)
	}
	if metaJSON.Valid {
		rec.MetaJSON = metaJSON.String
	}
	return rec, nil
}

// GetCurrent reads the active rollout.
func (s *Store) GetCurrent() (RolloutRecord, error) {
	var id string
	err := s.db.QueryRow(`SELECT rollout_id FROM active_rollout WHERE id = 1`).Scan(&id)
	if err != nil {
		return RolloutRecord{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetRollout(id)
}

// ListRollouts returns the most recent rollouts.
func (s *Store) ListRollouts(limit int) ([]RolloutRecord, error) {
	rows, err := s.db.Query(
		`SELECT rollout_id, created_at, horizon, batch, num_states, steps, meta_json
		 FROM rollouts ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list rollouts: %w", err)
	}
	defer rows.Close()

	var records []RolloutRecord
	for rows.Next() {
		var rec RolloutRecord
		var createdStr, statesJSON string
		var metaJSON sql.NullString
		if err := rows.Scan(&rec.RolloutID, &createdStr, &rec.Horizon, &rec.Batch, &statesJSON, &rec.Steps, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		if err := json.Unmarshal([]byte(statesJSON), &rec.NumStates); err != nil {
			return nil, fmt.Errorf("unmarshal num states: %w", err)
		}
		if metaJSON.Valid {
			rec.MetaJSON = metaJSON.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion get-rollout

// #region steps

// Steps returns a rollout's persisted timesteps in order.
func (s *Store) Steps(rolloutID string) ([]StepRecord, error) {
	rollout, err := s.GetRollout(rolloutID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT step, observations, actions, beliefs, created_at
		 FROM rollout_steps WHERE rollout_id = ? ORDER BY step ASC`, rolloutID,
	)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		rec := StepRecord{RolloutID: rolloutID}
		var obsJSON, actJSON, createdStr string
		var blob []byte
		if err := rows.Scan(&rec.Step, &obsJSON, &actJSON, &blob, &createdStr); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if err := json.Unmarshal([]byte(obsJSON), &rec.Observations); err != nil {
			return nil, fmt.Errorf("unmarshal observations: %w", err)
		}
		if err := json.Unmarshal([]byte(actJSON), &rec.Actions); err != nil {
			return nil, fmt.Errorf("unmarshal actions: %w", err)
		}
		rec.Beliefs, err = decodeBeliefs(blob, rollout.Batch, rollout.NumStates)
		if err != nil {
			return nil, fmt.Errorf("decode beliefs step %d: %w", rec.Step, err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		steps = append(steps, rec)
	}
	return steps, rows.Err()
}

// #endregion steps

// #region provenance

// LogDecision writes a provenance entry for one step.
func (s *Store) LogDecision(entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	converged := 0
	if entry.Converged {
		converged = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO provenance_log (rollout_id, step, decision, reason, posterior_entropy, converged, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.RolloutID, entry.Step, entry.Decision, nullIfEmpty(entry.Reason),
		entry.PosteriorEntropy, converged, entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// Provenance returns a rollout's decision log in step order.
func (s *Store) Provenance(rolloutID string) ([]ProvenanceEntry, error) {
	rows, err := s.db.Query(
		`SELECT step, decision, reason, posterior_entropy, converged, created_at
		 FROM provenance_log WHERE rollout_id = ? ORDER BY step ASC, id ASC`, rolloutID,
	)
	if err != nil {
		return nil, fmt.Errorf("query provenance: %w", err)
	}
	defer rows.Close()

	var entries []ProvenanceEntry
	for rows.Next() {
		e := ProvenanceEntry{RolloutID: rolloutID}
		var reason sql.NullString
		var converged int
		var createdStr string
		if err := rows.Scan(&e.Step, &e.Decision, &reason, &e.PosteriorEntropy, &converged, &createdStr); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		if reason.Valid {
			e.Reason = reason.String
		}
		e.Converged = converged != 0
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion provenance

// #region belief-encoding

// encodeBeliefs flattens [row][factor][state] into little-endian float64s.
func encodeBeliefs(beliefs [][][]float64) []byte {
	n := 0
	for _, row := range beliefs {
		for _, q := range row {
			n += len(q)
		}
	}
	buf := make([]byte, n*8)
	i := 0
	for _, row := range beliefs {
		for _, q := range row {
			for _, v := range q {
				binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
				i++
			}
		}
	}
	return buf
}

func decodeBeliefs(b []byte, batch int, numStates []int) ([][][]float64, error) {
	perRow := 0
	for _, n := range numStates {
		perRow += n
	}
	if len(b) != batch*perRow*8 {
		return nil, fmt.Errorf("belief blob has %d bytes, want %d", len(b), batch*perRow*8)
	}
	out := make([][][]float64, batch)
	i := 0
	for row := range out {
		out[row] = make([][]float64, len(numStates))
		for f, n := range numStates {
			q := make([]float64, n)
			for s := range q {
				q[s] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
				i++
			}
			out[row][f] = q
		}
	}
	return out, nil
}

// #endregion belief-encoding
