package train

import (
	"database/sql"
	"math"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// EpochRecord is one logged epoch of a run
type EpochRecord struct {
	Epoch        int
	Loss         float64
	GradientNorm float64
	LearningRate float64
}

// History records training runs and their per-epoch metrics in SQLite
type History struct {
	db *sql.DB
}

// OpenHistory opens or creates the run log at path
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open history %s", path)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts REAL NOT NULL,
			epochs INTEGER NOT NULL,
			learning_rate REAL NOT NULL,
			batch_size INTEGER NOT NULL,
			hidden INTEGER NOT NULL,
			activation TEXT NOT NULL,
			scheduler TEXT NOT NULL,
			seed INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create runs table")
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS epochs(
			run_id INTEGER NOT NULL REFERENCES runs(id),
			epoch INTEGER NOT NULL,
			loss REAL,
			grad_norm REAL,
			learning_rate REAL,
			PRIMARY KEY(run_id, epoch)
		)
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create epochs table")
	}
	return &History{db: db}, nil
}

// StartRun records a new run and returns its id
func (h *History) StartRun(c *Config) (int64, error) {
	res, err := h.db.Exec(`INSERT INTO runs(ts, epochs, learning_rate, batch_size, hidden, activation, scheduler, seed)
		VALUES(?,?,?,?,?,?,?,?)`,
		float64(time.Now().UnixNano())/1e9, c.Epochs, c.LearningRate, c.BatchSize, c.Hidden,
		c.Activation.String(), c.Scheduler.String(), int64(c.Seed))
	if err != nil {
		return 0, errors.Wrap(err, "failed to insert run")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read run id")
	}
	return id, nil
}

// LogEpoch records the metrics of one epoch. Non-finite values are stored
// as NULL.
func (h *History) LogEpoch(run int64, epoch int, loss, gradNorm, lr float64) error {
	_, err := h.db.Exec(`INSERT INTO epochs(run_id, epoch, loss, grad_norm, learning_rate) VALUES(?,?,?,?,?)`,
		run, epoch, finite(loss), finite(gradNorm), finite(lr))
	return errors.Wrapf(err, "failed to insert epoch %d of run %d", epoch, run)
}

// Epochs returns the recorded epochs of run in order
func (h *History) Epochs(run int64) ([]EpochRecord, error) {
	rows, err := h.db.Query(`SELECT epoch, loss, grad_norm, learning_rate FROM epochs WHERE run_id = ? ORDER BY epoch ASC`, run)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query epochs of run %d", run)
	}
	defer rows.Close()

	var records []EpochRecord
	for rows.Next() {
		var r EpochRecord
		var loss, norm, lr sql.NullFloat64
		if err := rows.Scan(&r.Epoch, &loss, &norm, &lr); err != nil {
			return nil, errors.Wrap(err, "failed to scan epoch")
		}
		r.Loss = nullToNaN(loss)
		r.GradientNorm = nullToNaN(norm)
		r.LearningRate = nullToNaN(lr)
		records = append(records, r)
	}
	return records, errors.Wrap(rows.Err(), "failed to read epochs")
}

// Close closes the underlying database
func (h *History) Close() error {
	return h.db.Close()
}

func finite(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
