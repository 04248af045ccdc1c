// Package services реализует семейные подписки: создание группы, приглашения,
// принятие приглашения, исключение и выход участников.
//
// Все проверки переходов состояния выполняются моделью FamilySubscription,
// сервис отвечает за загрузку группы, сохранение изменений и рассылку.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/token"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

// Repository операции хранилища, нужные семейным подпискам.
type Repository interface {
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateFamily(ctx context.Context, family models.FamilySubscription) (*models.FamilySubscription, error)
	GetFamilyBySubscription(ctx context.Context, subscriptionID string) (*models.FamilySubscription, error)
	FindFamilyByInviteToken(ctx context.Context, tokenHash string, now time.Time) (*models.FamilySubscription, error)
	DeleteFamily(ctx context.Context, familyID string) error
	ListOwnedFamilies(ctx context.Context, userUID string) ([]*models.FamilySubscription, error)
	ListMemberFamilies(ctx context.Context, userUID string) ([]*models.FamilySubscription, error)

	AddMember(ctx context.Context, familyID string, m models.Member) (int64, error)
	RemoveMember(ctx context.Context, memberID int64) error
	AcceptInvitation(ctx context.Context, memberID int64, tokenHash, userUID string, now time.Time) error
}

// Publisher публикует сообщения для воркера рассылки.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Runner запускает фоновые задачи, не влияющие на результат операции.
type Runner interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context) error) bool
}

// Config параметры семейных подписок.
type Config struct {
	InviteTTL  time.Duration
	MaxMembers int
	// Clock источник текущего времени, по умолчанию time.Now.
	Clock func() time.Time
}

// FamilyService управляет семейными группами.
type FamilyService struct {
	repo      Repository
	publisher Publisher
	runner    Runner
	cfg       Config
	log       *slog.Logger
}

// NewFamilyService создает FamilyService. publisher может быть nil, тогда письма не отправляются.
func NewFamilyService(repo Repository, publisher Publisher, runner Runner, cfg Config, log *slog.Logger) *FamilyService {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.InviteTTL <= 0 {
		cfg.InviteTTL = models.DefaultInviteTTL
	}
	return &FamilyService{
		repo:      repo,
		publisher: publisher,
		runner:    runner,
		cfg:       cfg,
		log:       log,
	}
}

func observe(operation string, err *error) {
	metrics.FamilyOperations.WithLabelValues(operation, metrics.Result(*err)).Inc()
}

// Create создает семейную группу для активной подписки владельца.
func (s *FamilyService) Create(ctx context.Context, requesterUID, subscriptionID string) (_ *models.FamilySubscription, err error) {
	const op = "services.family.Create"
	defer observe("create", &err)

	if _, err := uuid.Parse(subscriptionID); err != nil {
		return nil, apperr.NotFound("Subscription not found")
	}
	sub, err := s.repo.GetSubscription(ctx, subscriptionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("Subscription not found")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	family, err := models.NewFamilySubscription(sub, requesterUID, s.cfg.MaxMembers, s.cfg.Clock())
	if err != nil {
		return nil, err
	}
	family.ID = uuid.NewString()

	created, err := s.repo.CreateFamily(ctx, *family)
	if errors.Is(err, repository.ErrConflict) {
		return nil, apperr.Conflict("Family subscription already exists for this subscription")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("family subscription created",
		slog.String("op", op),
		slog.String("family_id", created.ID),
		slog.String("subscription_id", subscriptionID),
	)
	return created, nil
}

// Get возвращает группу подписки. Права доступа проверяет вызывающая сторона.
func (s *FamilyService) Get(ctx context.Context, subscriptionID string) (*models.FamilySubscription, error) {
	return s.load(ctx, "services.family.Get", subscriptionID)
}

func (s *FamilyService) load(ctx context.Context, op, subscriptionID string) (*models.FamilySubscription, error) {
	if _, err := uuid.Parse(subscriptionID); err != nil {
		return nil, apperr.NotFound("Family subscription not found")
	}
	family, err := s.repo.GetFamilyBySubscription(ctx, subscriptionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("Family subscription not found")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return family, nil
}

// Invite приглашает пользователя с данным email. Приглашение сохраняется до отправки
// письма, ошибка отправки только логируется.
func (s *FamilyService) Invite(ctx context.Context, requesterUID, subscriptionID, email string) (_ *models.InviteResult, err error) {
	const op = "services.family.Invite"
	defer observe("invite", &err)

	family, err := s.load(ctx, op, subscriptionID)
	if err != nil {
		return nil, err
	}
	if !family.IsOwner(requesterUID) {
		return nil, apperr.Forbidden("Only the subscription owner can invite family members")
	}

	invitee, err := s.repo.GetUserByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("User not found with this email")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	raw, hash, err := token.New()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	member, err := family.Invite(requesterUID, invitee.UUID, hash, s.cfg.Clock(), s.cfg.InviteTTL)
	if err != nil {
		return nil, err
	}

	member.ID, err = s.repo.AddMember(ctx, family.ID, *member)
	if errors.Is(err, repository.ErrConflict) {
		return nil, apperr.Conflict("Invitation already sent to this user")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	expiresAt := *member.InviteExpiresAt
	s.sendInvite(ctx, models.FamilyInviteMessage{
		To:           invitee.Email,
		InviteeName:  invitee.Name,
		OwnerName:    ownerName(family),
		Subscription: subscriptionSummary(family),
		Token:        raw,
		ExpiresAt:    expiresAt,
	})

	s.log.Info("family member invited",
		slog.String("op", op),
		slog.String("family_id", family.ID),
		slog.String("invitee_uid", invitee.UUID),
	)
	return &models.InviteResult{InvitedUser: invitee.Summary(), ExpiresAt: expiresAt}, nil
}

func (s *FamilyService) sendInvite(ctx context.Context, msg models.FamilyInviteMessage) {
	if s.publisher == nil {
		s.log.Warn("notification publisher is not configured, invitation email skipped", slog.String("to", msg.To))
		return
	}
	s.runner.Go(ctx, "family_invite_email", func(ctx context.Context) error {
		err := s.publisher.Publish(ctx, rabbitmq.RoutingFamilyInvite, msg)
		metrics.NotificationsPublished.WithLabelValues(rabbitmq.RoutingFamilyInvite, metrics.Result(err)).Inc()
		return err
	})
}

func ownerName(f *models.FamilySubscription) string {
	if f.Owner == nil {
		return ""
	}
	return f.Owner.Name
}

func subscriptionSummary(f *models.FamilySubscription) models.SubscriptionSummary {
	if f.Subscription == nil {
		return models.SubscriptionSummary{ID: f.SubscriptionID}
	}
	return *f.Subscription
}

// Accept принимает приглашение по токену из письма. Переход в active выполняется
// условным обновлением, поэтому один токен может быть использован только один раз.
func (s *FamilyService) Accept(ctx context.Context, requesterUID, rawToken string) (_ *models.AcceptResult, err error) {
	const op = "services.family.Accept"
	defer observe("accept", &err)

	invalid := apperr.NotFound("Invalid or expired invitation token")
	if rawToken == "" {
		return nil, invalid
	}
	hash := token.Hash(rawToken)
	now := s.cfg.Clock()

	family, err := s.repo.FindFamilyByInviteToken(ctx, hash, now)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !family.IsActive {
		return nil, invalid
	}

	member, err := family.Accept(requesterUID, hash, now)
	if err != nil {
		return nil, err
	}

	err = s.repo.AcceptInvitation(ctx, member.ID, hash, requesterUID, now)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("family invitation accepted",
		slog.String("op", op),
		slog.String("family_id", family.ID),
		slog.String("member_uid", requesterUID),
	)
	return &models.AcceptResult{Subscription: family.Subscription, Owner: family.Owner}, nil
}

// RemoveMember исключает участника по его UID. Повторное исключение уже
// исключенного участника завершается успешно без изменений.
func (s *FamilyService) RemoveMember(ctx context.Context, requesterUID, subscriptionID, memberUID string) (err error) {
	const op = "services.family.RemoveMember"
	defer observe("remove_member", &err)

	family, err := s.load(ctx, op, subscriptionID)
	if err != nil {
		return err
	}
	member, changed, err := family.RemoveMember(requesterUID, memberUID, s.cfg.Clock())
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	// запись могли исключить параллельно, результат тот же
	if err := s.repo.RemoveMember(ctx, member.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("family member removed",
		slog.String("op", op),
		slog.String("family_id", family.ID),
		slog.String("member_uid", memberUID),
	)
	return nil
}

// Leave выход активного участника из группы.
func (s *FamilyService) Leave(ctx context.Context, requesterUID, subscriptionID string) (err error) {
	const op = "services.family.Leave"
	defer observe("leave", &err)

	family, err := s.load(ctx, op, subscriptionID)
	if err != nil {
		return err
	}
	member, err := family.Leave(requesterUID, s.cfg.Clock())
	if err != nil {
		return err
	}
	err = s.repo.RemoveMember(ctx, member.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("You are not an active member of this family subscription")
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("family member left", slog.String("op", op), slog.String("family_id", family.ID))
	return nil
}

// Delete удаляет группу вместе с историей участников.
func (s *FamilyService) Delete(ctx context.Context, requesterUID, subscriptionID string) (err error) {
	const op = "services.family.Delete"
	defer observe("delete", &err)

	family, err := s.load(ctx, op, subscriptionID)
	if err != nil {
		return err
	}
	if !family.IsOwner(requesterUID) {
		return apperr.Forbidden("Only the subscription owner can delete family subscription")
	}
	err = s.repo.DeleteFamily(ctx, family.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Family subscription not found")
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("family subscription deleted", slog.String("op", op), slog.String("family_id", family.ID))
	return nil
}

// ListForUser возвращает группы, которыми пользователь владеет, и группы, где он активный участник.
func (s *FamilyService) ListForUser(ctx context.Context, userUID string) (*models.FamilyGroups, error) {
	const op = "services.family.ListForUser"

	var groups models.FamilyGroups
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		owned, err := s.repo.ListOwnedFamilies(gctx, userUID)
		groups.Owned = owned
		return err
	})
	g.Go(func() error {
		memberOf, err := s.repo.ListMemberFamilies(gctx, userUID)
		groups.MemberOf = memberOf
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("failed to list family subscriptions", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if groups.Owned == nil {
		groups.Owned = []*models.FamilySubscription{}
	}
	if groups.MemberOf == nil {
		groups.MemberOf = []*models.FamilySubscription{}
	}
	return &groups, nil
}
