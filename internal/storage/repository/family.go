package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

const familyColumns = `f.id, f.subscription_id, f.owner_uid, f.max_members, f.is_active, f.created_at, f.updated_at,
	s.name, s.price, s.currency, s.frequency, s.category, s.status, s.renewal_date,
	o.name, o.email`

const familyFrom = `family_subscriptions f
	JOIN subscriptions s ON s.id = f.subscription_id
	JOIN users o ON o.uid = f.owner_uid`

func scanFamily(row pgx.Row) (*models.FamilySubscription, error) {
	f := &models.FamilySubscription{
		Subscription: &models.SubscriptionSummary{},
		Owner:        &models.UserSummary{},
		Members:      []models.Member{},
	}
	err := row.Scan(&f.ID, &f.SubscriptionID, &f.OwnerUID, &f.MaxMembers, &f.IsActive, &f.CreatedAt, &f.UpdatedAt,
		&f.Subscription.Name, &f.Subscription.Price, &f.Subscription.Currency, &f.Subscription.Frequency,
		&f.Subscription.Category, &f.Subscription.Status, &f.Subscription.RenewalDate,
		&f.Owner.Name, &f.Owner.Email)
	if err != nil {
		return nil, err
	}
	f.Subscription.ID = f.SubscriptionID
	f.Owner.UUID = f.OwnerUID
	return f, nil
}

// CreateFamily сохраняет группу без участников. Повторная группа для той же
// подписки возвращает ErrConflict.
func (s *Storage) CreateFamily(ctx context.Context, family models.FamilySubscription) (*models.FamilySubscription, error) {
	const op = "storage.CreateFamily"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	var id string
	err := s.conn(ctx).QueryRow(ctx, `INSERT INTO family_subscriptions (id, subscription_id, owner_uid, max_members, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		family.ID, family.SubscriptionID, family.OwnerUID, family.MaxMembers, family.IsActive).Scan(&id)
	if err != nil {
		return nil, wrap(op, err)
	}
	return s.getFamily(ctx, op, "f.id = $1", id)
}

// GetFamilyBySubscription возвращает группу подписки со всеми участниками в порядке приглашения.
func (s *Storage) GetFamilyBySubscription(ctx context.Context, subscriptionID string) (*models.FamilySubscription, error) {
	return s.getFamily(ctx, "storage.GetFamilyBySubscription", "f.subscription_id = $1", subscriptionID)
}

// GetActiveFamilyBySubscription то же, что GetFamilyBySubscription, но только для активной группы.
func (s *Storage) GetActiveFamilyBySubscription(ctx context.Context, subscriptionID string) (*models.FamilySubscription, error) {
	return s.getFamily(ctx, "storage.GetActiveFamilyBySubscription", "f.subscription_id = $1 AND f.is_active", subscriptionID)
}

// FindFamilyByInviteToken ищет группу по хешу токена приглашения, срок действия
// которого не истек к моменту now. Просроченный токен неотличим от несуществующего.
func (s *Storage) FindFamilyByInviteToken(ctx context.Context, tokenHash string, now time.Time) (*models.FamilySubscription, error) {
	return s.getFamily(ctx, "storage.FindFamilyByInviteToken",
		`f.id = (SELECT m.family_id FROM family_members m
			WHERE m.invite_token_hash = $1 AND m.invite_expires_at > $2)`, tokenHash, now)
}

func (s *Storage) getFamily(ctx context.Context, op, where string, args ...any) (*models.FamilySubscription, error) {
	q := s.conn(ctx)
	f, err := scanFamily(q.QueryRow(ctx, `SELECT `+familyColumns+` FROM `+familyFrom+` WHERE `+where, args...))
	if err != nil {
		return nil, wrap(op, err)
	}
	members, err := loadMembers(ctx, q, []string{f.ID})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if m, ok := members[f.ID]; ok {
		f.Members = m
	}
	return f, nil
}

func loadMembers(ctx context.Context, q querier, familyIDs []string) (map[string][]models.Member, error) {
	rows, err := q.Query(ctx, `SELECT m.id, m.family_id, m.user_uid, m.status, m.added_at,
			m.invite_token_hash, m.invite_expires_at, u.name, u.email
		FROM family_members m
		JOIN users u ON u.uid = m.user_uid
		WHERE m.family_id = ANY($1::text[]::uuid[])
		ORDER BY m.id`, familyIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[string][]models.Member, len(familyIDs))
	for rows.Next() {
		var (
			m         models.Member
			familyID  string
			tokenHash *string
			user      models.UserSummary
		)
		if err := rows.Scan(&m.ID, &familyID, &m.UserUID, &m.Status, &m.AddedAt,
			&tokenHash, &m.InviteExpiresAt, &user.Name, &user.Email); err != nil {
			return nil, err
		}
		if tokenHash != nil {
			m.InviteTokenHash = *tokenHash
		}
		user.UUID = m.UserUID
		m.User = &user
		res[familyID] = append(res[familyID], m)
	}
	return res, rows.Err()
}

// AddMember сохраняет нового участника и возвращает его ID. Если у пользователя
// уже есть открытая запись в группе, возвращается ErrConflict.
func (s *Storage) AddMember(ctx context.Context, familyID string, m models.Member) (int64, error) {
	const op = "storage.AddMember"

	var tokenHash *string
	if m.InviteTokenHash != "" {
		tokenHash = &m.InviteTokenHash
	}
	var id int64
	err := s.conn(ctx).QueryRow(ctx, `INSERT INTO family_members
			(family_id, user_uid, status, added_at, invite_token_hash, invite_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		familyID, m.UserUID, m.Status, m.AddedAt, tokenHash, m.InviteExpiresAt).Scan(&id)
	if err != nil {
		return 0, wrap(op, err)
	}
	if _, err := s.conn(ctx).Exec(ctx, `UPDATE family_subscriptions SET updated_at = NOW() WHERE id = $1`, familyID); err != nil {
		return 0, wrap(op, err)
	}
	return id, nil
}

// RemoveMember переводит открытую запись участника в removed и сбрасывает приглашение.
// Запись, уже снятая конкурентным запросом, возвращает ErrNotFound.
func (s *Storage) RemoveMember(ctx context.Context, memberID int64) error {
	const op = "storage.RemoveMember"

	tag, err := s.conn(ctx).Exec(ctx, `UPDATE family_members
		SET status = 'removed', invite_token_hash = NULL, invite_expires_at = NULL
		WHERE id = $1 AND status IN ('pending', 'active')`, memberID)
	if err != nil {
		return wrap(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// AcceptInvitation атомарно активирует приглашение. Условия: токен совпадает и не
// истёк, приглашение адресовано userUID, группа активна и в ней есть свободное место.
// Строка группы блокируется на время проверки, поэтому параллельные принятия
// не превышают лимит. Если хотя бы одно условие нарушено, возвращается ErrNotFound.
func (s *Storage) AcceptInvitation(ctx context.Context, memberID int64, tokenHash, userUID string, now time.Time) error {
	const op = "storage.AcceptInvitation"

	return s.WithinTx(ctx, func(ctx context.Context) error {
		q := s.conn(ctx)

		var familyID string
		err := q.QueryRow(ctx, `SELECT f.id
			FROM family_subscriptions f
			JOIN family_members m ON m.family_id = f.id
			WHERE m.id = $1
			FOR UPDATE OF f`, memberID).Scan(&familyID)
		if err != nil {
			return wrap(op, err)
		}

		tag, err := q.Exec(ctx, `UPDATE family_members m
			SET status = 'active', invite_token_hash = NULL, invite_expires_at = NULL
			FROM family_subscriptions f
			WHERE m.id = $1
			  AND m.family_id = f.id
			  AND m.invite_token_hash = $2
			  AND m.user_uid = $3
			  AND m.status = 'pending'
			  AND m.invite_expires_at > $4
			  AND f.is_active
			  AND (SELECT COUNT(*) FROM family_members a
			       WHERE a.family_id = f.id AND a.status = 'active') < f.max_members`,
			memberID, tokenHash, userUID, now)
		if err != nil {
			return wrap(op, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil
	})
}

// DeleteFamily удаляет группу вместе с участниками.
func (s *Storage) DeleteFamily(ctx context.Context, familyID string) error {
	const op = "storage.DeleteFamily"

	tag, err := s.conn(ctx).Exec(ctx, `DELETE FROM family_subscriptions WHERE id = $1`, familyID)
	if err != nil {
		return wrap(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// ListOwnedFamilies группы, где пользователь владелец.
func (s *Storage) ListOwnedFamilies(ctx context.Context, userUID string) ([]*models.FamilySubscription, error) {
	return s.listFamilies(ctx, "storage.ListOwnedFamilies", "f.owner_uid = $1", userUID)
}

// ListMemberFamilies активные группы, где пользователь активный участник.
func (s *Storage) ListMemberFamilies(ctx context.Context, userUID string) ([]*models.FamilySubscription, error) {
	return s.listFamilies(ctx, "storage.ListMemberFamilies", `f.is_active AND EXISTS (
		SELECT 1 FROM family_members m
		WHERE m.family_id = f.id AND m.user_uid = $1 AND m.status = 'active')`, userUID)
}

func (s *Storage) listFamilies(ctx context.Context, op, where string, arg any) ([]*models.FamilySubscription, error) {
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}
	q := s.conn(ctx)
	rows, err := q.Query(ctx, `SELECT `+familyColumns+` FROM `+familyFrom+` WHERE `+where+` ORDER BY f.created_at DESC, f.id`, arg)
	if err != nil {
		return nil, wrap(op, err)
	}
	families := []*models.FamilySubscription{}
	ids := []string{}
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		families = append(families, f)
		ids = append(ids, f.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(ids) == 0 {
		return families, nil
	}

	members, err := loadMembers(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, f := range families {
		if m, ok := members[f.ID]; ok {
			f.Members = m
		}
	}
	return families, nil
}
