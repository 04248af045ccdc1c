package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// SubscriptionStats агрегирует подписки по статусам и считает пользователей
// с подписками и без них.
func (s *Storage) SubscriptionStats(ctx context.Context) (*models.Statistics, error) {
	const op = "storage.SubscriptionStats"

	ctx, span := tracer.Start(ctx, "repository.SubscriptionStats")
	defer span.End()

	byStatusSQL, _, err := psql.
		Select("status", "COUNT(*)", "COALESCE(SUM(price), 0)").
		From("subscriptions").
		GroupBy("status").
		OrderBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.conn(ctx).Query(ctx, byStatusSQL)
	if err != nil {
		return nil, wrap(op, err)
	}
	stats := &models.Statistics{ByStatus: []models.StatusStat{}}
	for rows.Next() {
		var st models.StatusStat
		if err := rows.Scan(&st.Status, &st.Count, &st.Revenue); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		stats.ByStatus = append(stats.ByStatus, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	usersSQL, _, err := psql.
		Select("(SELECT COUNT(*) FROM users)", "(SELECT COUNT(DISTINCT user_uid) FROM subscriptions)").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.conn(ctx).QueryRow(ctx, usersSQL).Scan(&stats.TotalUsers, &stats.UsersWithSubscriptions); err != nil {
		return nil, wrap(op, err)
	}
	stats.UsersWithoutSubscriptions = stats.TotalUsers - stats.UsersWithSubscriptions
	return stats, nil
}
