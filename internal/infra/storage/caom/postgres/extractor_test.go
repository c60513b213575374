package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/caom2-harvester/internal/domain/caom"
)

type fakeRows struct {
	rows    []Row
	pos     int
	err     error
	readErr error
}

func (f *fakeRows) Next() bool {
	if f.pos >= len(f.rows) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeRows) Values() ([]any, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.rows[f.pos-1], nil
}

func (f *fakeRows) Err() error { return f.err }

var lm = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func id(n byte) uuid.UUID { return uuid.UUID{15: n} }

func obsCols(n byte) []any   { return []any{[16]byte(id(n)), "TEST", "caom:TEST/obs", lm} }
func planeCols(n byte) []any { return []any{[16]byte(id(n)), "prod", lm} }
func artCols(n byte) []any   { return []any{[16]byte(id(n)), "ad:TEST/file", lm} }
func partCols(n byte) []any  { return []any{[16]byte(id(n)), "0", lm} }
func chunkCols(n byte) []any { return []any{[16]byte(id(n)), "science", lm} }

func nulls(n int) []any { return make([]any, n) }

func row(groups ...[]any) Row {
	var r Row
	for _, g := range groups {
		r = append(r, g...)
	}
	return r
}

func TestObservationExtractor_RoundTrip(t *testing.T) {
	// O1 -> P1 -> {A1, A2}; O1 -> P2 with no artifacts.
	rows := &fakeRows{rows: []Row{
		row(obsCols(1), planeCols(10), artCols(100), nulls(3), nulls(3)),
		row(obsCols(1), planeCols(10), artCols(101), nulls(3), nulls(3)),
		row(obsCols(1), planeCols(11), nulls(3), nulls(3), nulls(3)),
	}}

	got, err := NewObservationExtractor().Extract(rows)
	require.NoError(t, err)
	require.Len(t, got, 1)

	obs := got[0]
	assert.Equal(t, id(1), obs.ID)
	assert.Equal(t, "TEST", obs.Collection)
	assert.Equal(t, lm, obs.LastModified)
	require.Len(t, obs.Planes, 2)
	assert.Equal(t, id(10), obs.Planes[0].ID)
	require.Len(t, obs.Planes[0].Artifacts, 2)
	assert.Equal(t, id(100), obs.Planes[0].Artifacts[0].ID)
	assert.Equal(t, id(101), obs.Planes[0].Artifacts[1].ID)
	assert.Empty(t, obs.Planes[0].Artifacts[0].Parts)
	assert.Equal(t, id(11), obs.Planes[1].ID)
	assert.Empty(t, obs.Planes[1].Artifacts)
}

func TestObservationExtractor_FanOutCounts(t *testing.T) {
	// Two parts with two chunks each multiply the ancestor columns; every
	// entity must still appear exactly once.
	rows := &fakeRows{rows: []Row{
		row(obsCols(1), planeCols(10), artCols(100), partCols(200), chunkCols(250)),
		row(obsCols(1), planeCols(10), artCols(100), partCols(200), chunkCols(251)),
		row(obsCols(1), planeCols(10), artCols(100), partCols(201), chunkCols(252)),
		row(obsCols(1), planeCols(10), artCols(100), partCols(201), chunkCols(253)),
	}}

	got, err := NewObservationExtractor().Extract(rows)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, caom.NodeCounts{Planes: 1, Artifacts: 1, Parts: 2, Chunks: 4}, got[0].Counts())

	parts := got[0].Planes[0].Artifacts[0].Parts
	assert.Equal(t, id(250), parts[0].Chunks[0].ID)
	assert.Equal(t, id(253), parts[1].Chunks[1].ID)
	assert.Equal(t, "science", parts[1].Chunks[1].ProductType)
}

func TestObservationExtractor_MultipleRoots(t *testing.T) {
	rows := &fakeRows{rows: []Row{
		row(obsCols(1), planeCols(10)),
		row(obsCols(2), planeCols(20)),
		row(obsCols(2), planeCols(21)),
		row(obsCols(3), nulls(3)),
	}}

	got, err := NewObservationExtractor().Extract(rows)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Len(t, got[0].Planes, 1)
	assert.Len(t, got[1].Planes, 2)
	assert.Empty(t, got[2].Planes)
}

func TestObservationExtractor_SameChildIDUnderNewParent(t *testing.T) {
	// A repeated identifier under a different parent starts a new node.
	rows := &fakeRows{rows: []Row{
		row(obsCols(1), planeCols(10), artCols(100)),
		row(obsCols(2), planeCols(10), artCols(100)),
	}}

	got, err := NewObservationExtractor().Extract(rows)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, got[1].Planes, 1)
	assert.Len(t, got[1].Planes[0].Artifacts, 1)
}

func TestObservationExtractor_ObservationOnly(t *testing.T) {
	rows := &fakeRows{rows: []Row{row(obsCols(1)), row(obsCols(1))}}

	got, err := NewObservationExtractor().Extract(rows)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Planes)
}

func TestObservationExtractor_Errors(t *testing.T) {
	readErr := errors.New("decode failed")
	iterErr := errors.New("connection reset")

	tests := []struct {
		name    string
		rows    *fakeRows
		wantErr error
	}{
		{
			name:    "missing root",
			rows:    &fakeRows{rows: []Row{row(nulls(4), planeCols(10))}},
			wantErr: ErrMissingRoot,
		},
		{
			name:    "row read error",
			rows:    &fakeRows{rows: []Row{row(obsCols(1))}, readErr: readErr},
			wantErr: readErr,
		},
		{
			name:    "iteration error",
			rows:    &fakeRows{rows: []Row{row(obsCols(1))}, err: iterErr},
			wantErr: iterErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewObservationExtractor().Extract(tt.rows)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, got)
		})
	}
}

func TestObservationExtractor_BadColumnType(t *testing.T) {
	rows := &fakeRows{rows: []Row{{42, "TEST", "uri", lm}}}

	_, err := NewObservationExtractor().Extract(rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected identifier type")
}

func TestObservationExtractor_Empty(t *testing.T) {
	got, err := NewObservationExtractor().Extract(&fakeRows{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestColumnDecoders(t *testing.T) {
	u := id(7)

	tests := []struct {
		name   string
		value  any
		want   uuid.UUID
		wantOK bool
	}{
		{name: "nil", value: nil},
		{name: "array", value: [16]byte(u), want: u, wantOK: true},
		{name: "uuid", value: u, want: u, wantOK: true},
		{name: "string", value: u.String(), want: u, wantOK: true},
		{name: "bytes", value: u[:], want: u, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := uuidAt(Row{tt.value}, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, _, err := uuidAt(Row{}, 0)
	assert.Error(t, err)
}

func TestObservationQuery(t *testing.T) {
	q := observationQuery(2, "o.obs_id = $1", "")
	assert.Contains(t, q, planeColumns)
	assert.Contains(t, q, "LEFT JOIN plane p")
	assert.NotContains(t, q, "artifact")
	assert.Contains(t, q, "ORDER BY o.obs_id, p.plane_id")

	q = observationQuery(MaxDepth, "o.collection = $1", "o.last_modified")
	assert.Contains(t, q, "LEFT JOIN chunk c ON c.part_id = pt.part_id")
	assert.Contains(t, q, "ORDER BY o.last_modified, o.obs_id")
}
