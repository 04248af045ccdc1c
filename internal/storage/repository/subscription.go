package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

const subscriptionColumns = `s.id, s.user_uid, s.name, s.price, s.currency, s.frequency, s.category,
	s.payment_method, s.status, s.start_date, s.renewal_date, s.created_at, s.updated_at`

func subscriptionDest(sub *models.Subscription) []any {
	return []any{
		&sub.ID, &sub.UserUID, &sub.Name, &sub.Price, &sub.Currency, &sub.Frequency, &sub.Category,
		&sub.PaymentMethod, &sub.Status, &sub.StartDate, &sub.RenewalDate, &sub.CreatedAt, &sub.UpdatedAt,
	}
}

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	sub := &models.Subscription{}
	if err := row.Scan(subscriptionDest(sub)...); err != nil {
		return nil, err
	}
	return sub, nil
}

func collectSubscriptions(rows pgx.Rows) ([]*models.Subscription, error) {
	defer rows.Close()
	res := []*models.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, sub)
	}
	return res, rows.Err()
}

// CreateSubscription вставляет новую подписку и возвращает сохранённую запись.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	const op = "storage.CreateSubscription"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO subscriptions AS s (id, user_uid, name, price, currency, frequency, category,
			      payment_method, status, start_date, renewal_date)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			  RETURNING ` + subscriptionColumns
	created, err := scanSubscription(s.conn(ctx).QueryRow(ctx, query,
		sub.ID, sub.UserUID, sub.Name, sub.Price, sub.Currency, sub.Frequency, sub.Category,
		sub.PaymentMethod, sub.Status, sub.StartDate, sub.RenewalDate))
	if err != nil {
		return nil, wrap(op, err)
	}
	return created, nil
}

// GetSubscription возвращает подписку по ID.
func (s *Storage) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions s
			  WHERE s.id = $1`
	sub, err := scanSubscription(s.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return sub, nil
}

// UpdateSubscription перезаписывает изменяемые поля подписки.
func (s *Storage) UpdateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	const op = "storage.UpdateSubscription"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE subscriptions AS s
			  SET name = $2, price = $3, currency = $4, frequency = $5, category = $6,
			      payment_method = $7, status = $8, start_date = $9, renewal_date = $10,
			      updated_at = NOW()
			  WHERE s.id = $1
			  RETURNING ` + subscriptionColumns
	updated, err := scanSubscription(s.conn(ctx).QueryRow(ctx, query,
		sub.ID, sub.Name, sub.Price, sub.Currency, sub.Frequency, sub.Category,
		sub.PaymentMethod, sub.Status, sub.StartDate, sub.RenewalDate))
	if err != nil {
		return nil, wrap(op, err)
	}
	return updated, nil
}

// UpdateSubscriptionStatus меняет только статус подписки.
func (s *Storage) UpdateSubscriptionStatus(ctx context.Context, id string, status models.SubscriptionStatus) (*models.Subscription, error) {
	const op = "storage.UpdateSubscriptionStatus"

	query := `UPDATE subscriptions AS s
			  SET status = $2, updated_at = NOW()
			  WHERE s.id = $1
			  RETURNING ` + subscriptionColumns
	updated, err := scanSubscription(s.conn(ctx).QueryRow(ctx, query, id, status))
	if err != nil {
		return nil, wrap(op, err)
	}
	return updated, nil
}

// DeleteSubscription удаляет подписку. Семейная группа удаляется каскадно.
func (s *Storage) DeleteSubscription(ctx context.Context, id string) error {
	const op = "storage.DeleteSubscription"
	if err := ctxDone(ctx, op); err != nil {
		return err
	}

	tag, err := s.conn(ctx).Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return wrap(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// DeleteSubscriptionsByUser удаляет все подписки пользователя и возвращает их число.
func (s *Storage) DeleteSubscriptionsByUser(ctx context.Context, userUID string) (int64, error) {
	const op = "storage.DeleteSubscriptionsByUser"

	tag, err := s.conn(ctx).Exec(ctx, `DELETE FROM subscriptions WHERE user_uid = $1`, userUID)
	if err != nil {
		return 0, wrap(op, err)
	}
	return tag.RowsAffected(), nil
}

// ListSubscriptionsByUser возвращает подписки пользователя, новые первыми.
func (s *Storage) ListSubscriptionsByUser(ctx context.Context, userUID string, limit, offset int) ([]*models.Subscription, error) {
	const op = "storage.ListSubscriptionsByUser"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions s
			  WHERE s.user_uid = $1
			  ORDER BY s.created_at DESC, s.id
			  LIMIT $2 OFFSET $3`
	rows, err := s.conn(ctx).Query(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, wrap(op, err)
	}
	subs, err := collectSubscriptions(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// ListUpcomingRenewals активные подписки пользователя с продлением в интервале [from, until].
func (s *Storage) ListUpcomingRenewals(ctx context.Context, userUID string, from, until time.Time) ([]*models.Subscription, error) {
	const op = "storage.ListUpcomingRenewals"

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions s
			  WHERE s.user_uid = $1 AND s.status = 'active'
			    AND s.renewal_date >= $2 AND s.renewal_date <= $3
			  ORDER BY s.renewal_date, s.id`
	rows, err := s.conn(ctx).Query(ctx, query, userUID, from, until)
	if err != nil {
		return nil, wrap(op, err)
	}
	subs, err := collectSubscriptions(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// ListRenewalsDue активные подписки, продление которых наступает ровно через
// одно из days дней, считая от начала суток today.
func (s *Storage) ListRenewalsDue(ctx context.Context, today time.Time, days []int) ([]models.RenewalReminder, error) {
	const op = "storage.ListRenewalsDue"

	query := `SELECT ` + subscriptionColumns + `, u.uid, u.name, u.email, d.days
			  FROM subscriptions s
			  JOIN users u ON u.uid = s.user_uid
			  JOIN unnest($2::int[]) AS d(days)
			    ON s.renewal_date >= $1::timestamptz + make_interval(days => d.days)
			   AND s.renewal_date < $1::timestamptz + make_interval(days => d.days + 1)
			  WHERE s.status = 'active'
			  ORDER BY s.renewal_date, s.id`
	rows, err := s.conn(ctx).Query(ctx, query, today, days)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	res := []models.RenewalReminder{}
	for rows.Next() {
		var r models.RenewalReminder
		dest := append(subscriptionDest(&r.Subscription), &r.User.UUID, &r.User.Name, &r.User.Email, &r.DaysBefore)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// MarkLapsedInactive переводит в inactive активные подписки с прошедшей датой продления
// и возвращает их ID.
func (s *Storage) MarkLapsedInactive(ctx context.Context, now time.Time) ([]string, error) {
	const op = "storage.MarkLapsedInactive"

	rows, err := s.conn(ctx).Query(ctx, `UPDATE subscriptions
		SET status = 'inactive', updated_at = NOW()
		WHERE status = 'active' AND renewal_date < $1
		RETURNING id`, now)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}
