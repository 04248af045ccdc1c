// Package services содержит бизнес-логику для управления подписками и кешированием.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/cache"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

// DefaultUpcomingDays горизонт предстоящих продлений по умолчанию.
const DefaultUpcomingDays = 7

// SubscriptionRepository определяет методы для работы с подписками в хранилище.
type SubscriptionRepository interface {
	// CreateSubscription сохраняет подписку с заранее выданным ID.
	CreateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error)
	// GetSubscription возвращает подписку по ID или repository.ErrNotFound.
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	// UpdateSubscription перезаписывает изменяемые поля подписки.
	UpdateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error)
	// UpdateSubscriptionStatus меняет только статус.
	UpdateSubscriptionStatus(ctx context.Context, id string, status models.SubscriptionStatus) (*models.Subscription, error)
	// DeleteSubscription удаляет подписку.
	DeleteSubscription(ctx context.Context, id string) error
	// ListSubscriptionsByUser возвращает подписки пользователя с пагинацией.
	ListSubscriptionsByUser(ctx context.Context, userUID string, limit, offset int) ([]*models.Subscription, error)
	// ListUpcomingRenewals активные подписки, продлевающиеся в интервале [from, until].
	ListUpcomingRenewals(ctx context.Context, userUID string, from, until time.Time) ([]*models.Subscription, error)

	GetFamilyBySubscription(ctx context.Context, subscriptionID string) (*models.FamilySubscription, error)
	DeleteFamily(ctx context.Context, familyID string) error
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(ctx context.Context, key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	// Invalidate удаляет значения из кеша по ключам.
	Invalidate(ctx context.Context, keys ...string) error
}

// WorkflowTrigger запускает внешний workflow напоминаний для подписки.
type WorkflowTrigger interface {
	Trigger(ctx context.Context, subscriptionID string) (string, error)
}

// Publisher публикует сообщения для воркера рассылки.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Runner запускает фоновые задачи.
type Runner interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context) error) bool
}

// Deps внешние зависимости сервиса. Workflow и Publisher могут быть nil.
type Deps struct {
	Repo      SubscriptionRepository
	Cache     Cache
	Workflow  WorkflowTrigger
	Publisher Publisher
	Runner    Runner
	CacheTTL  time.Duration
	Clock     func() time.Time
}

// SubscriptionService реализует бизнес-логику работы с подписками, включая кеширование.
type SubscriptionService struct {
	repo      SubscriptionRepository
	cache     Cache
	workflow  WorkflowTrigger
	publisher Publisher
	runner    Runner
	ttl       time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(deps Deps, log *slog.Logger) *SubscriptionService {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = time.Hour
	}
	return &SubscriptionService{
		repo:      deps.Repo,
		cache:     deps.Cache,
		workflow:  deps.Workflow,
		publisher: deps.Publisher,
		runner:    deps.Runner,
		ttl:       deps.CacheTTL,
		now:       deps.Clock,
		log:       log,
	}
}

var errNotFound = apperr.NotFound("Subscription not found")

// Create создает подписку пользователя. После сохранения в фоне запускается workflow напоминаний.
func (s *SubscriptionService) Create(ctx context.Context, userUID string, req models.DummySubscription) (*models.Subscription, error) {
	const op = "services.subscription.Create"

	sub, err := req.ToSubscription(userUID, s.now())
	if err != nil {
		return nil, err
	}
	sub.ID = uuid.NewString()

	created, err := s.repo.CreateSubscription(ctx, *sub)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created new subscription", slog.String("op", op), slog.String("id", created.ID))

	s.remember(ctx, created)
	s.triggerWorkflow(ctx, created.ID)
	return created, nil
}

func (s *SubscriptionService) triggerWorkflow(ctx context.Context, subscriptionID string) {
	if s.workflow == nil {
		return
	}
	s.runner.Go(ctx, "reminder_workflow", func(ctx context.Context) error {
		runID, err := s.workflow.Trigger(ctx, subscriptionID)
		metrics.WorkflowTriggers.WithLabelValues(metrics.Result(err)).Inc()
		if err != nil {
			return err
		}
		s.log.Debug("reminder workflow started",
			slog.String("subscription_id", subscriptionID),
			slog.String("run_id", runID),
		)
		return nil
	})
}

func (s *SubscriptionService) remember(ctx context.Context, sub *models.Subscription) {
	key := cache.SubscriptionKey(sub.ID)
	if err := s.cache.Set(ctx, key, sub, s.ttl); err != nil {
		s.log.Warn("failed to cache subscription", slog.String("key", key), sl.Err(err))
	}
}

func (s *SubscriptionService) forget(ctx context.Context, id string) {
	key := cache.SubscriptionKey(id)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", key), sl.Err(err))
	}
}

// Read возвращает подписку по ID, используя кеш или репозиторий.
// Ошибки кеша не мешают чтению из базы.
func (s *SubscriptionService) Read(ctx context.Context, id string) (*models.Subscription, error) {
	const op = "services.subscription.Read"
	if _, err := uuid.Parse(id); err != nil {
		return nil, errNotFound
	}

	var cached models.Subscription
	found, err := s.cache.Get(ctx, cache.SubscriptionKey(id), &cached)
	if err != nil {
		s.log.Warn("failed to read subscription from cache", slog.String("id", id), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	sub, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, sub)
	return sub, nil
}

func (s *SubscriptionService) load(ctx context.Context, op, id string) (*models.Subscription, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errNotFound
	}
	sub, err := s.repo.GetSubscription(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// List возвращает подписки текущего пользователя.
func (s *SubscriptionService) List(ctx context.Context, userUID string, limit, offset int) ([]*models.Subscription, error) {
	const op = "services.subscription.List"
	limit, offset = clampPage(limit, offset)
	subs, err := s.repo.ListSubscriptionsByUser(ctx, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// ListByUser возвращает подписки указанного пользователя ему самому или администратору.
func (s *SubscriptionService) ListByUser(ctx context.Context, requester models.Identity, userUID string, limit, offset int) ([]*models.Subscription, error) {
	if requester.Role != models.RoleAdmin && requester.UserUID != userUID {
		return nil, apperr.Forbidden("You are not the owner of this account")
	}
	if _, err := uuid.Parse(userUID); err != nil {
		return []*models.Subscription{}, nil
	}
	return s.List(ctx, userUID, limit, offset)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > models.MaxLimit {
		limit = models.DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Update перезаписывает подписку новыми данными с повторной нормализацией.
// Владелец и дата создания не меняются; не переданные статус и валюта
// берутся из текущей записи.
func (s *SubscriptionService) Update(ctx context.Context, id string, req models.DummySubscription) (*models.Subscription, error) {
	const op = "services.subscription.Update"

	existing, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if req.Status == "" {
		req.Status = string(existing.Status)
	}
	if req.Currency == "" {
		req.Currency = string(existing.Currency)
	}
	next, err := req.ToSubscription(existing.UserUID, s.now())
	if err != nil {
		return nil, err
	}
	next.ID = existing.ID
	next.CreatedAt = existing.CreatedAt

	updated, err := s.repo.UpdateSubscription(ctx, *next)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.forget(ctx, id)
	s.log.Info("subscription updated", slog.String("op", op), slog.String("id", id))
	return updated, nil
}

// Cancel переводит подписку в статус cancelled.
func (s *SubscriptionService) Cancel(ctx context.Context, id string) (*models.Subscription, error) {
	const op = "services.subscription.Cancel"
	if _, err := uuid.Parse(id); err != nil {
		return nil, errNotFound
	}
	sub, err := s.repo.UpdateSubscriptionStatus(ctx, id, models.StatusCancelled)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.forget(ctx, id)
	s.log.Info("subscription cancelled", slog.String("op", op), slog.String("id", id))
	return sub, nil
}

// Delete удаляет подписку и её семейную группу в одной транзакции.
func (s *SubscriptionService) Delete(ctx context.Context, id string) error {
	const op = "services.subscription.Delete"
	if _, err := uuid.Parse(id); err != nil {
		return errNotFound
	}

	err := s.repo.WithinTx(ctx, func(ctx context.Context) error {
		family, err := s.repo.GetFamilyBySubscription(ctx, id)
		switch {
		case err == nil:
			if err := s.repo.DeleteFamily(ctx, family.ID); err != nil {
				return err
			}
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
		return s.repo.DeleteSubscription(ctx, id)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return errNotFound
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.forget(ctx, id)
	s.log.Info("subscription deleted", slog.String("op", op), slog.String("id", id))
	return nil
}

// Upcoming возвращает активные подписки пользователя, продлевающиеся в ближайшие days дней.
func (s *SubscriptionService) Upcoming(ctx context.Context, userUID string, days int) ([]*models.Subscription, error) {
	const op = "services.subscription.Upcoming"
	if days <= 0 {
		days = DefaultUpcomingDays
	}
	if days > 365 {
		return nil, apperr.Validation("days must be between 1 and 365")
	}
	now := s.now()
	subs, err := s.repo.ListUpcomingRenewals(ctx, userUID, now, now.AddDate(0, 0, days))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// ReminderResult итог обработки обратного вызова workflow.
type ReminderResult struct {
	Sent       bool   `json:"sent"`
	Reason     string `json:"reason,omitempty"`
	DaysBefore int    `json:"daysBefore,omitempty"`
}

// SendRenewalReminder публикует напоминание о продлении, если подписка активна
// и дата продления ещё впереди. Иначе напоминание пропускается.
func (s *SubscriptionService) SendRenewalReminder(ctx context.Context, subscriptionID string) (*ReminderResult, error) {
	const op = "services.subscription.SendRenewalReminder"

	sub, err := s.load(ctx, op, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.StatusActive {
		return &ReminderResult{Reason: "subscription is not active"}, nil
	}
	now := s.now()
	if !sub.RenewalDate.After(now) {
		return &ReminderResult{Reason: "renewal date has passed"}, nil
	}
	if s.publisher == nil {
		return nil, fmt.Errorf("%s: notification publisher is not configured", op)
	}

	user, err := s.repo.GetUser(ctx, sub.UserUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	reminder := models.RenewalReminder{
		Subscription: *sub,
		User:         user.Summary(),
		DaysBefore:   int(math.Ceil(sub.RenewalDate.Sub(now).Hours() / 24)),
	}
	err = s.publisher.Publish(ctx, rabbitmq.RoutingReminder, reminder.Message())
	metrics.NotificationsPublished.WithLabelValues(rabbitmq.RoutingReminder, metrics.Result(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &ReminderResult{Sent: true, DaysBefore: reminder.DaysBefore}, nil
}
