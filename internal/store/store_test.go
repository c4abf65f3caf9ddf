package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejcamacho11/CharLib/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "charlib.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleMeasurement(seq int64) model.Measurement {
	return model.Measurement{
		Status:           model.Measured,
		Delay:            42e-12,
		Transition:       18e-12,
		InternalEnergy:   1.3e-15,
		InputCapacitance: 2.9e-15,
		LeakagePower:     4.1e-12,
		Seq:              seq,
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charlib.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestRecordAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	corner := model.Corner{Slew: 0.1e-9, Load: 5e-15}

	require.NoError(t, s.Record(ctx, "run-1", "INVX1", 0, corner, sampleMeasurement(1)))

	got, err := s.LoadRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "INVX1", got[0].Cell)
	assert.Equal(t, model.ArcID(0), got[0].Arc)
	assert.Equal(t, corner, got[0].Corner)
	assert.True(t, got[0].Measurement.Equal(sampleMeasurement(1)))
	assert.Equal(t, int64(1), got[0].Measurement.Seq)
}

func TestRecord_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	corner := model.Corner{Slew: 0.1e-9, Load: 5e-15}

	require.NoError(t, s.Record(ctx, "run-1", "INVX1", 0, corner, sampleMeasurement(1)))
	// Same trial again, different seq stamp: the content address is the
	// same, so the second write is a no-op.
	require.NoError(t, s.Record(ctx, "run-1", "INVX1", 0, corner, sampleMeasurement(9)))

	got, err := s.LoadRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].Measurement.Seq, "first write wins")
}

func TestRecord_DistinctCornersCoexist(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "run-1", "INVX1", 0,
		model.Corner{Slew: 0.1e-9, Load: 1e-15}, sampleMeasurement(1)))
	require.NoError(t, s.Record(ctx, "run-1", "INVX1", 0,
		model.Corner{Slew: 0.1e-9, Load: 8e-15}, sampleMeasurement(2)))
	require.NoError(t, s.Record(ctx, "run-2", "INVX1", 0,
		model.Corner{Slew: 0.1e-9, Load: 1e-15}, sampleMeasurement(1)))

	run1, err := s.LoadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, run1, 2)

	run2, err := s.LoadRun(ctx, "run-2")
	require.NoError(t, err)
	assert.Len(t, run2, 1, "runs are isolated by token")
}

func TestLoadRun_SeqOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Insert out of seq order.
	require.NoError(t, s.Record(ctx, "run-1", "INVX1", 1,
		model.Corner{Slew: 0.4e-9, Load: 1e-15}, sampleMeasurement(3)))
	require.NoError(t, s.Record(ctx, "run-1", "INVX1", 0,
		model.Corner{Slew: 0.1e-9, Load: 1e-15}, sampleMeasurement(1)))

	got, err := s.LoadRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Measurement.Seq)
	assert.Equal(t, int64(3), got[1].Measurement.Seq)
}

func TestListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "run-a", "INVX1", 0,
		model.Corner{Slew: 0.1e-9, Load: 1e-15}, sampleMeasurement(1)))
	unmeasured := model.Measurement{Status: model.Unmeasured, Reason: "gave up", Seq: 2}
	require.NoError(t, s.Record(ctx, "run-a", "NAND2X1", 0,
		model.Corner{Slew: 0.1e-9, Load: 1e-15}, unmeasured))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-a", runs[0].Token)
	assert.Equal(t, 2, runs[0].Cells)
	assert.Equal(t, 2, runs[0].Measurements)
	assert.Equal(t, 1, runs[0].Unmeasured)
}

func TestUnmeasuredRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	m := model.Measurement{Status: model.Unmeasured, Reason: "failed after 3 attempts", Seq: 7}

	require.NoError(t, s.Record(ctx, "run-1", "INVX1", 0,
		model.Corner{Slew: 0.1e-9, Load: 1e-15}, m))

	got, err := s.LoadRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.Unmeasured, got[0].Measurement.Status)
	assert.Equal(t, "failed after 3 attempts", got[0].Measurement.Reason)
}

func TestMaxSeqAndHasMeasurement(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	corner := model.Corner{Slew: 0.1e-9, Load: 1e-15}

	seq, err := s.MaxSeq(ctx, "run-1")
	require.NoError(t, err)
	assert.Zero(t, seq)

	require.NoError(t, s.Record(ctx, "run-1", "INVX1", 0, corner, sampleMeasurement(5)))

	seq, err = s.MaxSeq(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), seq)

	ok, err := s.HasMeasurement(ctx, "run-1", "INVX1", 0, corner)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasMeasurement(ctx, "run-1", "INVX1", 0, corner.WithOffset(1e-12))
	require.NoError(t, err)
	assert.False(t, ok, "different corner key")
}
