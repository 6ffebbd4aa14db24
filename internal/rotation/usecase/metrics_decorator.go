package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/envie/internal/metrics"
	rotationDomain "github.com/allisson/envie/internal/rotation/domain"
)

// rotationUseCaseWithMetrics decorates RotationUseCase with metrics
// instrumentation.
type rotationUseCaseWithMetrics struct {
	next    RotationUseCase
	metrics metrics.BusinessMetrics
}

// NewRotationUseCaseWithMetrics wraps a RotationUseCase with metrics recording.
func NewRotationUseCaseWithMetrics(useCase RotationUseCase, m metrics.BusinessMetrics) RotationUseCase {
	return &rotationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (r *rotationUseCaseWithMetrics) record(
	ctx context.Context,
	operation string,
	start time.Time,
	err error,
) {
	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "rotation", operation, status)
	r.metrics.RecordDuration(ctx, "rotation", operation, time.Since(start), status)
}

func (r *rotationUseCaseWithMetrics) Initiate(
	ctx context.Context,
	input *rotationDomain.InitiateInput,
) (*rotationDomain.PendingKeyRotation, error) {
	start := time.Now()
	rotation, err := r.next.Initiate(ctx, input)
	r.record(ctx, "rotation_initiate", start, err)
	return rotation, err
}

func (r *rotationUseCaseWithMetrics) Approve(
	ctx context.Context,
	rotationID, userID uuid.UUID,
	comment string,
	verifiedDecryption bool,
) (*rotationDomain.PendingKeyRotation, error) {
	start := time.Now()
	rotation, err := r.next.Approve(ctx, rotationID, userID, comment, verifiedDecryption)
	r.record(ctx, "rotation_approve", start, err)
	return rotation, err
}

func (r *rotationUseCaseWithMetrics) Reject(
	ctx context.Context,
	rotationID, userID uuid.UUID,
	comment string,
	verifiedDecryption bool,
) (*rotationDomain.PendingKeyRotation, error) {
	start := time.Now()
	rotation, err := r.next.Reject(ctx, rotationID, userID, comment, verifiedDecryption)
	r.record(ctx, "rotation_reject", start, err)
	return rotation, err
}

func (r *rotationUseCaseWithMetrics) Cancel(
	ctx context.Context,
	rotationID, userID uuid.UUID,
) (*rotationDomain.PendingKeyRotation, error) {
	start := time.Now()
	rotation, err := r.next.Cancel(ctx, rotationID, userID)
	r.record(ctx, "rotation_cancel", start, err)
	return rotation, err
}

func (r *rotationUseCaseWithMetrics) GetPending(
	ctx context.Context,
	projectID uuid.UUID,
) (*rotationDomain.PendingKeyRotation, error) {
	start := time.Now()
	rotation, err := r.next.GetPending(ctx, projectID)
	r.record(ctx, "rotation_get_pending", start, err)
	return rotation, err
}

func (r *rotationUseCaseWithMetrics) ListPendingForUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*rotationDomain.PendingKeyRotation, error) {
	start := time.Now()
	rotations, err := r.next.ListPendingForUser(ctx, userID)
	r.record(ctx, "rotation_list_pending", start, err)
	return rotations, err
}

func (r *rotationUseCaseWithMetrics) SweepExpired(ctx context.Context) (int64, error) {
	start := time.Now()
	swept, err := r.next.SweepExpired(ctx)
	r.record(ctx, "rotation_sweep_expired", start, err)
	return swept, err
}
