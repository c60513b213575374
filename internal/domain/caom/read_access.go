package caom

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReadAccessType discriminates the read-access tuples that share a common
// shape but live in separate tables of a catalogue.
type ReadAccessType string

const (
	ObservationMetaReadAccess ReadAccessType = "ObservationMetaReadAccess"
	PlaneMetaReadAccess       ReadAccessType = "PlaneMetaReadAccess"
	PlaneDataReadAccess       ReadAccessType = "PlaneDataReadAccess"
)

// String returns the string representation of the ReadAccessType.
func (t ReadAccessType) String() string { return string(t) }

// Validate reports whether t names a known read-access type.
func (t ReadAccessType) Validate() error {
	switch t {
	case ObservationMetaReadAccess, PlaneMetaReadAccess, PlaneDataReadAccess:
		return nil
	default:
		return fmt.Errorf("unknown read access type: %q", string(t))
	}
}

// ReadAccess grants a group access to an asset (an observation or a plane).
type ReadAccess struct {
	ID           uuid.UUID
	Type         ReadAccessType
	AssetID      uuid.UUID
	GroupID      string
	LastModified time.Time
}
