package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certlab/mrvalidate/internal/config"
	"github.com/certlab/mrvalidate/internal/model"
	"github.com/certlab/mrvalidate/internal/resilience"
)

type stubSource struct {
	rec      *RawRecord
	err      error
	failures int // transient failures before success
	calls    int
	delay    time.Duration
}

func (s *stubSource) Lookup(ctx context.Context, id string) (*RawRecord, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.calls <= s.failures {
		return nil, resilience.NewTransientError(errors.New("source busy"))
	}
	return s.rec, nil
}

func (s *stubSource) Items(context.Context) ([]string, error) {
	return []string{"TE02.03.01"}, nil
}

func testCfg() config.ExtractConfig {
	return config.ExtractConfig{TimeoutSecs: 1, RatePerSecond: 1000, MaxAttempts: 2}
}

func TestExtract_NormalizesRecord(t *testing.T) {
	src := &stubSource{rec: &RawRecord{
		ID:         "TE02.03.01",
		PageNumber: 12,
		Caption:    "TE02.03.01 시험결과판정근거",
		Metadata:   map[string]string{"CM_name": "X"},
		Cells: []Cell{
			{Row: 1, Col: 0, Text: "근거"},
			{Row: 0, Col: 0, Text: "시험결과판정근거"},
			{Row: 0, Col: 1, Text: "시험결과"},
			{Row: 1, Col: 1, Text: "통과"},
		},
	}}
	ex := New(src, testCfg())

	data, err := ex.Extract(context.Background(), "TE02.03.01")
	require.NoError(t, err)

	assert.Equal(t, 12, data.PageNumber)
	assert.Equal(t, []string{"시험결과판정근거", "시험결과"}, data.Table.Headers)
	require.Len(t, data.Table.Rows, 1)
	assert.Equal(t, []string{"근거", "통과"}, data.Table.Rows[0])
}

func TestExtract_NotFound(t *testing.T) {
	ex := New(&stubSource{}, testCfg())

	_, err := ex.Extract(context.Background(), "TE02.03.01")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrTestItemNotFound))
}

func TestExtract_RetriesTransientFailures(t *testing.T) {
	src := &stubSource{rec: &RawRecord{ID: "TE02.03.01"}, failures: 1}
	ex := New(src, testCfg())

	_, err := ex.Extract(context.Background(), "TE02.03.01")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestExtract_TimeoutReportedAsTyped(t *testing.T) {
	src := &stubSource{rec: &RawRecord{ID: "TE02.03.01"}, delay: 3 * time.Second}
	ex := New(src, testCfg())

	_, err := ex.Extract(context.Background(), "TE02.03.01")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrTimeout))
}

func TestExtract_CallerCancellationReportedAsTimeoutKind(t *testing.T) {
	// A slow source with a generous deadline: the caller hanging up must
	// surface as the timeout kind, never as item absence.
	src := &stubSource{rec: &RawRecord{ID: "TE02.03.01"}, delay: 2 * time.Second}
	ex := New(src, config.ExtractConfig{TimeoutSecs: 10, RatePerSecond: 1000, MaxAttempts: 2})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := ex.Extract(ctx, "TE02.03.01")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrTimeout))
	assert.False(t, model.IsKind(err, model.ErrTestItemNotFound))
}

func TestExtract_PreCancelledContext(t *testing.T) {
	ex := New(&stubSource{rec: &RawRecord{ID: "TE02.03.01"}}, testCfg())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ex.Extract(ctx, "TE02.03.01")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrTimeout))
}

func TestExtract_SourceFailureIsNotItemAbsence(t *testing.T) {
	src := &stubSource{err: errors.New("read report: disk failure")}
	ex := New(src, testCfg())

	_, err := ex.Extract(context.Background(), "TE02.03.01")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrSource))
	assert.False(t, model.IsKind(err, model.ErrTestItemNotFound))
}

func TestExtract_CorruptedCarriesPartialData(t *testing.T) {
	src := &stubSource{rec: &RawRecord{
		ID:          "TE02.03.01",
		Corrupted:   true,
		CorruptNote: "page 12 unreadable",
		Metadata:    map[string]string{"CM_name": "X"},
	}}
	ex := New(src, testCfg())

	_, err := ex.Extract(context.Background(), "TE02.03.01")
	require.Error(t, err)
	require.True(t, model.IsKind(err, model.ErrCorruptedSource))

	partial := model.PartialOf(err)
	require.NotNil(t, partial)
	assert.Equal(t, "X", partial.Metadata["CM_name"])
}

func TestNormalize_EmptyRecord(t *testing.T) {
	data := Normalize(&RawRecord{ID: "TE02.03.01"})

	assert.NotNil(t, data.Metadata)
	assert.Empty(t, data.Table.Headers)
	assert.Empty(t, data.Table.Rows)
}

func TestGridFromCells_SparseGrid(t *testing.T) {
	table := gridFromCells([]Cell{
		{Row: 0, Col: 2, Text: "c"},
		{Row: 2, Col: 0, Text: "x"},
	})

	assert.Equal(t, []string{"", "", "c"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"x", "", ""}, table.Rows[1])
}
