package store

import (
	"context"
	"fmt"

	"github.com/ejcamacho11/CharLib/internal/model"
)

// RunInfo summarizes one stored run.
type RunInfo struct {
	Token        string
	CreatedAt    string
	Cells        int
	Measurements int
	Unmeasured   int
}

// StoredMeasurement is one measurement row read back from the store.
type StoredMeasurement struct {
	Cell        string
	Arc         model.ArcID
	Corner      model.Corner
	Measurement model.Measurement
}

// ListRuns returns every stored run, newest token first. UUIDv7 run
// tokens sort chronologically, so token order is creation order.
func (s *Store) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.token, r.created_at,
		       COUNT(DISTINCT m.cell),
		       COUNT(m.id),
		       COALESCE(SUM(CASE WHEN m.status = 'unmeasured' THEN 1 ELSE 0 END), 0)
		FROM runs r
		LEFT JOIN measurements m ON m.run_token = r.token
		GROUP BY r.token
		ORDER BY r.token DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		if err := rows.Scan(&info.Token, &info.CreatedAt, &info.Cells, &info.Measurements, &info.Unmeasured); err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// LoadRun reads every measurement of a run in seq order, the order the
// engine stamped them in.
func (s *Store) LoadRun(ctx context.Context, runToken string) ([]StoredMeasurement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cell, arc_id, slew, load, offset,
		       status, delay, transition, internal_energy, input_capacitance,
		       leakage_power, constraint_offset, pass, seq, reason
		FROM measurements
		WHERE run_token = ?
		ORDER BY seq
	`, runToken)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runToken, err)
	}
	defer rows.Close()

	var out []StoredMeasurement
	for rows.Next() {
		var (
			sm     StoredMeasurement
			arcID  int
			status string
			pass   int
		)
		if err := rows.Scan(
			&sm.Cell, &arcID,
			&sm.Corner.Slew, &sm.Corner.Load, &sm.Corner.Offset,
			&status,
			&sm.Measurement.Delay, &sm.Measurement.Transition,
			&sm.Measurement.InternalEnergy, &sm.Measurement.InputCapacitance,
			&sm.Measurement.LeakagePower, &sm.Measurement.Constraint,
			&pass, &sm.Measurement.Seq, &sm.Measurement.Reason,
		); err != nil {
			return nil, fmt.Errorf("load run %s: scan: %w", runToken, err)
		}
		sm.Arc = model.ArcID(arcID)
		sm.Measurement.Pass = pass != 0
		sm.Measurement.Status = parseStatus(status)
		out = append(out, sm)
	}
	return out, rows.Err()
}

// MaxSeq returns the highest measurement seq recorded for a run, for
// resuming the engine clock past already-stored stamps.
func (s *Store) MaxSeq(ctx context.Context, runToken string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM measurements WHERE run_token = ?
	`, runToken).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max seq for %s: %w", runToken, err)
	}
	return seq, nil
}

// HasMeasurement reports whether a (run, cell, arc, corner) trial is
// already stored, so a resumed run can skip it.
func (s *Store) HasMeasurement(ctx context.Context, runToken, cell string, arc model.ArcID, corner model.Corner) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM measurements
		WHERE run_token = ? AND cell = ? AND arc_id = ? AND corner_key = ?
	`, runToken, cell, int(arc), corner.Key()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check measurement: %w", err)
	}
	return count > 0, nil
}

func parseStatus(s string) model.Status {
	if s == "unmeasured" {
		return model.Unmeasured
	}
	return model.Measured
}
