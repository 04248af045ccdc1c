// Package services определяет отношение пользователя к подписке: владелец,
// участник семейной группы или посторонний.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

var tracer = otel.Tracer("github.com/magabrotheeeer/subscription-tracker/internal/services/access")

// Repository источники данных для проверки доступа.
type Repository interface {
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	GetActiveFamilyBySubscription(ctx context.Context, subscriptionID string) (*models.FamilySubscription, error)
}

// Result итог проверки доступа. Family заполняется, только если доступ определен через группу.
type Result struct {
	HasAccess  bool
	AccessType models.AccessType
	Family     *models.FamilySubscription
}

var noAccess = Result{AccessType: models.AccessNone}

// Evaluator проверяет доступ к подпискам.
type Evaluator struct {
	repo Repository
}

// NewEvaluator создает Evaluator.
func NewEvaluator(repo Repository) *Evaluator {
	return &Evaluator{repo: repo}
}

// Check определяет тип доступа userUID к подписке subscriptionID.
// Владелец подписки определяется без обращения к семейной группе.
// Ошибка хранилища возвращается как есть и никогда не превращается в отказ.
func (e *Evaluator) Check(ctx context.Context, userUID, subscriptionID string) (res Result, err error) {
	const op = "services.access.Check"

	ctx, span := tracer.Start(ctx, "access.Check",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("subscription.id", subscriptionID)),
	)
	defer func() {
		span.SetAttributes(attribute.String("access.type", string(res.AccessType)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "access check failed")
		} else {
			metrics.AccessChecks.WithLabelValues(string(res.AccessType)).Inc()
		}
		span.End()
	}()

	if _, perr := uuid.Parse(subscriptionID); perr != nil {
		return noAccess, nil
	}

	sub, err := e.repo.GetSubscription(ctx, subscriptionID)
	switch {
	case err == nil:
		if sub.IsOwnedBy(userUID) {
			return Result{HasAccess: true, AccessType: models.AccessOwner}, nil
		}
	case !errors.Is(err, repository.ErrNotFound):
		return noAccess, fmt.Errorf("%s: %w", op, err)
	}

	family, err := e.repo.GetActiveFamilyBySubscription(ctx, subscriptionID)
	if errors.Is(err, repository.ErrNotFound) {
		return noAccess, nil
	}
	if err != nil {
		return noAccess, fmt.Errorf("%s: %w", op, err)
	}

	access := family.AccessFor(userUID)
	if access == models.AccessNone {
		return noAccess, nil
	}
	return Result{HasAccess: true, AccessType: access, Family: family}, nil
}
