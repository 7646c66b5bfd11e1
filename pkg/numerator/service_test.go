package numerator

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goodsflow/internal/core/numerator"
)

// mockRow implements pgx.Row for tests.
type mockRow struct {
	value int64
	err   error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) > 0 {
		if p, ok := dest[0].(*int64); ok {
			*p = r.value
		}
	}
	return nil
}

// mockQuerier returns a preconfigured counter, bumping it per call like the
// real UPSERT would.
type mockQuerier struct {
	counter int64
	step    int64
	calls   int
	lastSQL string
	err     error
}

func (q *mockQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.calls++
	q.lastSQL = sql
	if q.err != nil {
		return &mockRow{err: q.err}
	}
	step := q.step
	if step == 0 {
		step = 1
		if len(args) > 1 {
			if n, ok := args[1].(int64); ok {
				step = n
			}
		}
	}
	q.counter += step
	return &mockRow{value: q.counter}
}

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)

	period := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	cfg := numerator.DefaultConfig("GRN")

	num, err := svc.GetNextNumber(context.Background(), cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "GRN-2025-001", num)

	num, err = svc.GetNextNumber(context.Background(), cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "GRN-2025-002", num)

	// Strict strategy hits the database on every call
	assert.Equal(t, 2, q.calls)
}

func TestGetNextNumber_StrictPadding(t *testing.T) {
	q := &mockQuerier{counter: 999}
	svc := New(q)

	period := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	num, err := svc.GetNextNumber(context.Background(), numerator.DefaultConfig("GRN"), nil, period)
	require.NoError(t, err)

	// Padding is a minimum width, large values are not truncated
	assert.Equal(t, "GRN-2025-1000", num)
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)

	period := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cfg := numerator.DefaultConfig("CHL")
	opts := &numerator.Options{Strategy: numerator.StrategyCached, RangeSize: 10}

	for i := 1; i <= 15; i++ {
		num, err := svc.GetNextNumber(context.Background(), cfg, opts, period)
		require.NoError(t, err)
		assert.Contains(t, num, "CHL-2025-")
	}

	// 15 numbers from ranges of 10 requires exactly two DB round trips
	assert.Equal(t, 2, q.calls)
}

func TestGetNextNumber_CachedSequence(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)

	period := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cfg := numerator.DefaultConfig("PO")
	opts := &numerator.Options{Strategy: numerator.StrategyCached, RangeSize: 3}

	var got []string
	for i := 0; i < 4; i++ {
		num, err := svc.GetNextNumber(context.Background(), cfg, opts, period)
		require.NoError(t, err)
		got = append(got, num)
	}

	assert.Equal(t, []string{"PO-2025-001", "PO-2025-002", "PO-2025-003", "PO-2025-004"}, got)
}

func TestGetNextNumber_YearReset(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	cfg := numerator.DefaultConfig("GRN")

	_, err := svc.GetNextNumber(context.Background(), cfg, nil, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, q.lastSQL, "sys_sequences")

	num2026, err := svc.GetNextNumber(context.Background(), cfg, nil, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// Different year formats under a different sequence key
	assert.Contains(t, num2026, "GRN-2026-")
}

func TestGetNextNumber_Error(t *testing.T) {
	q := &mockQuerier{err: assert.AnError}
	svc := New(q)

	_, err := svc.GetNextNumber(context.Background(), numerator.DefaultConfig("GRN"), nil, time.Now())
	assert.Error(t, err)
}

func TestSetNextNumber_InvalidatesCache(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)

	period := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cfg := numerator.DefaultConfig("CHL")
	opts := &numerator.Options{Strategy: numerator.StrategyCached, RangeSize: 10}

	_, err := svc.GetNextNumber(context.Background(), cfg, opts, period)
	require.NoError(t, err)
	callsBefore := q.calls

	require.NoError(t, svc.SetNextNumber(context.Background(), cfg, period, 100))

	// Next request must hit the database again, not the stale range
	_, err = svc.GetNextNumber(context.Background(), cfg, opts, period)
	require.NoError(t, err)
	assert.Greater(t, q.calls, callsBefore+1)
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, int64(7), ParseNumber("GRN-2025-007"))
	assert.Equal(t, int64(42), ParseNumber("PO-042"))
	assert.Equal(t, int64(-1), ParseNumber("garbage"))
}
