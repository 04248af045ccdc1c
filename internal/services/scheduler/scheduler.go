// Package services содержит планировщик напоминаний о продлении подписок.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/cache"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// DefaultInterval период между проходами планировщика.
const DefaultInterval = 12 * time.Hour

// SubscriptionRepository выборки, нужные планировщику.
type SubscriptionRepository interface {
	ListRenewalsDue(ctx context.Context, today time.Time, days []int) ([]models.RenewalReminder, error)
	MarkLapsedInactive(ctx context.Context, now time.Time) ([]string, error)
}

// Cache кеш подписок, из которого убираются записи с измененным статусом.
type Cache interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// Publisher публикует сообщения для воркера рассылки.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// SweepResult итог одного прохода.
type SweepResult struct {
	Published int
	Failed    int
	Lapsed    int64
}

// SchedulerService раз в интервал рассылает напоминания о продлении и помечает
// просроченные подписки неактивными.
type SchedulerService struct {
	repo      SubscriptionRepository
	publisher Publisher
	cache     Cache
	interval  time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo SubscriptionRepository, publisher Publisher, interval time.Duration, log *slog.Logger) *SchedulerService {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &SchedulerService{
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		now:       time.Now,
		log:       log,
	}
}

// WithClock подменяет источник времени.
func (s *SchedulerService) WithClock(now func() time.Time) *SchedulerService {
	s.now = now
	return s
}

// WithCache задает кеш подписок. Без него статусы в кеше обновятся по TTL.
func (s *SchedulerService) WithCache(c Cache) *SchedulerService {
	s.cache = c
	return s
}

// Run выполняет проход сразу и затем по таймеру, пока не отменен ctx.
func (s *SchedulerService) Run(ctx context.Context) {
	s.runSweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		}
	}
}

func (s *SchedulerService) runSweep(ctx context.Context) {
	res, err := s.Sweep(ctx)
	if err != nil {
		s.log.Error("scheduler sweep failed", sl.Err(err))
		return
	}
	s.log.Info("scheduler sweep finished",
		slog.Int("published", res.Published),
		slog.Int("failed", res.Failed),
		slog.Int64("lapsed", res.Lapsed),
	)
}

// Sweep публикует напоминания для подписок, продлевающихся через models.ReminderDays
// дней, и переводит в inactive подписки с прошедшей датой продления.
// Ошибка публикации одного сообщения не останавливает проход.
func (s *SchedulerService) Sweep(ctx context.Context) (SweepResult, error) {
	const op = "services.scheduler.Sweep"
	var res SweepResult

	now := s.now().UTC()
	today := now.Truncate(24 * time.Hour)

	due, err := s.repo.ListRenewalsDue(ctx, today, models.ReminderDays)
	if err != nil {
		return res, fmt.Errorf("%s: %w", op, err)
	}
	if len(due) == 0 {
		s.log.Debug("no renewals due")
	}
	for _, r := range due {
		err := s.publisher.Publish(ctx, rabbitmq.RoutingReminder, r.Message())
		metrics.NotificationsPublished.WithLabelValues(rabbitmq.RoutingReminder, metrics.Result(err)).Inc()
		if err != nil {
			res.Failed++
			s.log.Error("failed to publish reminder",
				slog.String("subscription_id", r.Subscription.ID),
				sl.Err(err),
			)
			if errors.Is(err, context.Canceled) {
				return res, fmt.Errorf("%s: %w", op, err)
			}
			continue
		}
		res.Published++
	}

	lapsed, err := s.repo.MarkLapsedInactive(ctx, now)
	if err != nil {
		return res, fmt.Errorf("%s: %w", op, err)
	}
	res.Lapsed = int64(len(lapsed))
	s.forget(ctx, lapsed)
	return res, nil
}

func (s *SchedulerService) forget(ctx context.Context, ids []string) {
	if s.cache == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cache.SubscriptionKey(id))
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.Warn("failed to invalidate lapsed subscriptions", slog.Int("count", len(keys)), sl.Err(err))
	}
}
