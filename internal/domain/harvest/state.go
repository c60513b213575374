package harvest

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// HarvestState is the persisted cursor recording how far propagation has
// progressed for one (source, cname) pair. The cursor is the pair
// (curLastModified, curID): the modification time of the last processed record
// and the identifier that breaks ties among records sharing that time.
type HarvestState struct {
	// Identity.
	id     uuid.UUID
	source string
	cname  string

	// Cursor.
	curLastModified *time.Time
	curID           *uuid.UUID
}

// NewHarvestState creates a state with an empty cursor for the pair.
func NewHarvestState(source, cname string) *HarvestState {
	return &HarvestState{id: uuid.New(), source: source, cname: cname}
}

// ReconstructHarvestState rebuilds a state from persisted values.
func ReconstructHarvestState(
	id uuid.UUID,
	source, cname string,
	curLastModified *time.Time,
	curID *uuid.UUID,
) *HarvestState {
	return &HarvestState{
		id:              id,
		source:          source,
		cname:           cname,
		curLastModified: curLastModified,
		curID:           curID,
	}
}

// Getters for HarvestState.
func (s *HarvestState) ID() uuid.UUID   { return s.id }
func (s *HarvestState) Source() string  { return s.source }
func (s *HarvestState) CName() string   { return s.cname }
func (s *HarvestState) HasCursor() bool { return s.curLastModified != nil }

// CurLastModified returns the high-water mark, or nil when nothing has been
// harvested yet.
func (s *HarvestState) CurLastModified() *time.Time {
	if s.curLastModified == nil {
		return nil
	}
	t := *s.curLastModified
	return &t
}

// CurID returns the tie-break identifier of the last processed record, or nil.
func (s *HarvestState) CurID() *uuid.UUID {
	if s.curID == nil {
		return nil
	}
	id := *s.curID
	return &id
}

// IsBoundary reports whether id is the last record processed at the current
// high-water mark.
func (s *HarvestState) IsBoundary(id uuid.UUID) bool {
	return s.curID != nil && *s.curID == id
}

// PrecedesCursor reports whether a record shares the high-water mark but
// sorts before curID in (lastModified, id) order, meaning an earlier batch
// already processed it.
func (s *HarvestState) PrecedesCursor(lastModified time.Time, id uuid.UUID) bool {
	if s.curLastModified == nil || s.curID == nil || !lastModified.Equal(*s.curLastModified) {
		return false
	}
	return bytes.Compare(id[:], s.curID[:]) < 0
}

// Advance moves the cursor onto a processed record.
func (s *HarvestState) Advance(lastModified time.Time, id uuid.UUID) {
	s.curLastModified = &lastModified
	s.curID = &id
}

// SetCurLastModified replaces the high-water mark without touching curID.
func (s *HarvestState) SetCurLastModified(t time.Time) { s.curLastModified = &t }

// SetCurID replaces the tie-break identifier without touching the high-water
// mark.
func (s *HarvestState) SetCurID(id uuid.UUID) { s.curID = &id }

// Restore resets the cursor to a previously captured snapshot.
func (s *HarvestState) Restore(snapshot CursorSnapshot) {
	s.curLastModified = snapshot.lastModified
	s.curID = snapshot.id
}

// Snapshot captures the current cursor so it can be restored if the work that
// advanced it is rolled back.
func (s *HarvestState) Snapshot() CursorSnapshot {
	return CursorSnapshot{lastModified: s.CurLastModified(), id: s.CurID()}
}

// Clone returns a deep copy of the state.
func (s *HarvestState) Clone() *HarvestState {
	return ReconstructHarvestState(s.id, s.source, s.cname, s.CurLastModified(), s.CurID())
}

// CursorSnapshot is an immutable copy of a cursor position.
type CursorSnapshot struct {
	lastModified *time.Time
	id           *uuid.UUID
}
