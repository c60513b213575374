package harvest

import (
	"fmt"

	"github.com/ahrav/caom2-harvester/internal/domain/caom"
)

// EntityKind identifies which family of deletion records a harvester
// propagates. Each kind maps to one deletion table in the source catalogue and
// to exactly one delete shape in the destination.
type EntityKind string

const (
	KindDeletedObservation               EntityKind = "DeletedObservation"
	KindDeletedObservationMetaReadAccess EntityKind = "DeletedObservationMetaReadAccess"
	KindDeletedPlaneMetaReadAccess       EntityKind = "DeletedPlaneMetaReadAccess"
	KindDeletedPlaneDataReadAccess       EntityKind = "DeletedPlaneDataReadAccess"
)

// cnamePrefix qualifies kind names when they are used as cursor discriminators.
const cnamePrefix = "caom2."

// AllKinds lists every supported kind in a stable order.
func AllKinds() []EntityKind {
	return []EntityKind{
		KindDeletedObservation,
		KindDeletedObservationMetaReadAccess,
		KindDeletedPlaneMetaReadAccess,
		KindDeletedPlaneDataReadAccess,
	}
}

// ParseEntityKind converts s into an EntityKind. Both the short name and the
// fully-qualified cursor name are accepted.
func ParseEntityKind(s string) (EntityKind, error) {
	if len(s) > len(cnamePrefix) && s[:len(cnamePrefix)] == cnamePrefix {
		s = s[len(cnamePrefix):]
	}
	for _, k := range AllKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
}

// String returns the short name of the kind.
func (k EntityKind) String() string { return string(k) }

// CName returns the fully-qualified name used to key the harvest cursor.
func (k EntityKind) CName() string { return cnamePrefix + string(k) }

// DeleteShape is the destination operation a kind is propagated with.
type DeleteShape int

const (
	// DeleteShapeUnknown marks a kind that no destination can delete.
	DeleteShapeUnknown DeleteShape = iota
	// DeleteShapeByID deletes an entity that is unambiguous by id alone.
	DeleteShapeByID
	// DeleteShapeByTypeAndID deletes an entity whose table is shared across
	// several discriminators.
	DeleteShapeByTypeAndID
)

// Shape reports how the destination deletes entities of this kind.
func (k EntityKind) Shape() DeleteShape {
	switch k {
	case KindDeletedObservation:
		return DeleteShapeByID
	case KindDeletedObservationMetaReadAccess, KindDeletedPlaneMetaReadAccess, KindDeletedPlaneDataReadAccess:
		return DeleteShapeByTypeAndID
	default:
		return DeleteShapeUnknown
	}
}

// ReadAccessType returns the discriminator the destination needs for
// type-and-id deletes. ok is false for kinds deleted by id alone.
func (k EntityKind) ReadAccessType() (t caom.ReadAccessType, ok bool) {
	switch k {
	case KindDeletedObservationMetaReadAccess:
		return caom.ObservationMetaReadAccess, true
	case KindDeletedPlaneMetaReadAccess:
		return caom.PlaneMetaReadAccess, true
	case KindDeletedPlaneDataReadAccess:
		return caom.PlaneDataReadAccess, true
	default:
		return "", false
	}
}
