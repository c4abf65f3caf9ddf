package store

import (
	"context"
	"fmt"

	"github.com/ejcamacho11/CharLib/internal/model"
)

// Record inserts one measurement, creating the run row on first use.
//
// The row id is the content hash of (run, cell, arc, corner), and the
// insert uses ON CONFLICT(id) DO NOTHING: re-recording the same trial,
// as a retried worker or a resumed run will, is silently idempotent.
// Other constraint violations still return errors.
//
// Record implements engine.Recorder.
func (s *Store) Record(ctx context.Context, runToken string, cell string, arc model.ArcID, corner model.Corner, m model.Measurement) error {
	id, err := m.ID(runToken, cell, arc, corner)
	if err != nil {
		return fmt.Errorf("record measurement: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record measurement: begin tx: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (token) VALUES (?)
		ON CONFLICT(token) DO NOTHING
	`, runToken); err != nil {
		return fmt.Errorf("record measurement: run row: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO measurements
		(id, run_token, cell, arc_id, corner_key, slew, load, offset,
		 status, delay, transition, internal_energy, input_capacitance,
		 leakage_power, constraint_offset, pass, seq, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		runToken,
		cell,
		int(arc),
		corner.Key(),
		corner.Slew,
		corner.Load,
		corner.Offset,
		m.Status.String(),
		m.Delay,
		m.Transition,
		m.InternalEnergy,
		m.InputCapacitance,
		m.LeakagePower,
		m.Constraint,
		boolToInt(m.Pass),
		m.Seq,
		m.Reason,
	); err != nil {
		return fmt.Errorf("record measurement: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record measurement: commit: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
