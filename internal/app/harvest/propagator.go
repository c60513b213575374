package harvest

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ahrav/caom2-harvester/internal/domain/caom"
	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
	"github.com/ahrav/caom2-harvester/pkg/common"
)

// DeletePropagator applies deletion records to the destination. It is bound at
// construction to the delete shape the entity kind requires.
type DeletePropagator struct {
	kind  domain.EntityKind
	shape domain.DeleteShape

	byID        domain.ByIDDeleter
	byTypeAndID domain.ByTypeAndIDDeleter
	accessType  caom.ReadAccessType

	limiter *common.RateLimiter
}

// PropagatorOption configures a DeletePropagator.
type PropagatorOption func(*DeletePropagator)

// WithRateLimiter throttles destination deletes.
func WithRateLimiter(rl *common.RateLimiter) PropagatorOption {
	return func(p *DeletePropagator) { p.limiter = rl }
}

// NewDeletePropagator binds kind to the matching deleter. It fails when the
// kind is unsupported or the required deleter was not provided.
func NewDeletePropagator(
	kind domain.EntityKind,
	byID domain.ByIDDeleter,
	byTypeAndID domain.ByTypeAndIDDeleter,
	opts ...PropagatorOption,
) (*DeletePropagator, error) {
	p := &DeletePropagator{kind: kind, shape: kind.Shape()}

	switch p.shape {
	case domain.DeleteShapeByID:
		if byID == nil {
			return nil, fmt.Errorf("no delete-by-id destination for %s", kind)
		}
		p.byID = byID
	case domain.DeleteShapeByTypeAndID:
		if byTypeAndID == nil {
			return nil, fmt.Errorf("no delete-by-type-and-id destination for %s", kind)
		}
		p.byTypeAndID = byTypeAndID
		p.accessType, _ = kind.ReadAccessType()
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedKind, kind)
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Delete removes the destination entity identified by id. Any failure is
// returned as a *harvest.PropagationError; no retry is attempted.
func (p *DeletePropagator) Delete(ctx context.Context, id uuid.UUID) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return &domain.PropagationError{Kind: p.kind, ID: id, Err: err}
		}
	}

	var err error
	switch p.shape {
	case domain.DeleteShapeByID:
		err = p.byID.DeleteByID(ctx, id)
	case domain.DeleteShapeByTypeAndID:
		err = p.byTypeAndID.DeleteByTypeAndID(ctx, p.accessType, id)
	}
	if err != nil {
		return &domain.PropagationError{Kind: p.kind, ID: id, Err: err}
	}
	return nil
}

// String describes the bound destination operation.
func (p *DeletePropagator) String() string {
	if p.shape == domain.DeleteShapeByTypeAndID {
		return fmt.Sprintf("DeleteByTypeAndID(%s, id)", p.accessType)
	}
	return "DeleteByID(id)"
}
