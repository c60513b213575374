package harvest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/caom2-harvester/internal/domain/caom"
)

func TestParseEntityKind(t *testing.T) {
	tests := []struct {
		in      string
		want    EntityKind
		wantErr bool
	}{
		{in: "DeletedObservation", want: KindDeletedObservation},
		{in: "caom2.DeletedObservation", want: KindDeletedObservation},
		{in: "caom2.DeletedPlaneDataReadAccess", want: KindDeletedPlaneDataReadAccess},
		{in: "DeletedObservationMetaReadAccess", want: KindDeletedObservationMetaReadAccess},
		{in: "DeletedPlane", wantErr: true},
		{in: "caom2.", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEntityKind(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEntityKind_CName(t *testing.T) {
	assert.Equal(t, "caom2.DeletedObservation", KindDeletedObservation.CName())
	assert.Equal(t, "caom2.DeletedPlaneMetaReadAccess", KindDeletedPlaneMetaReadAccess.CName())
}

func TestEntityKind_Shape(t *testing.T) {
	tests := []struct {
		kind       EntityKind
		shape      DeleteShape
		accessType caom.ReadAccessType
	}{
		{kind: KindDeletedObservation, shape: DeleteShapeByID},
		{kind: KindDeletedObservationMetaReadAccess, shape: DeleteShapeByTypeAndID, accessType: caom.ObservationMetaReadAccess},
		{kind: KindDeletedPlaneMetaReadAccess, shape: DeleteShapeByTypeAndID, accessType: caom.PlaneMetaReadAccess},
		{kind: KindDeletedPlaneDataReadAccess, shape: DeleteShapeByTypeAndID, accessType: caom.PlaneDataReadAccess},
		{kind: EntityKind("DeletedChunk"), shape: DeleteShapeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.shape, tt.kind.Shape())

			at, ok := tt.kind.ReadAccessType()
			assert.Equal(t, tt.shape == DeleteShapeByTypeAndID, ok)
			assert.Equal(t, tt.accessType, at)
		})
	}
}
