package repository

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

var sortColumns = map[string]string{
	"name":        "s.name",
	"price":       "s.price",
	"startDate":   "s.start_date",
	"renewalDate": "s.renewal_date",
	"createdAt":   "s.created_at",
	"status":      "s.status",
	"category":    "s.category",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(v string) string {
	return "%" + likeEscaper.Replace(v) + "%"
}

// searchConditions строит условия отбора. Пустые поля фильтра игнорируются.
func searchConditions(f models.SearchFilter) sq.And {
	cond := sq.And{}
	if f.UserUID != "" {
		cond = append(cond, sq.Eq{"s.user_uid": f.UserUID})
	}
	if len(f.Categories) > 0 {
		cond = append(cond, sq.Eq{"s.category": f.Categories})
	}
	if len(f.Statuses) > 0 {
		cond = append(cond, sq.Eq{"s.status": f.Statuses})
	}
	if len(f.Currencies) > 0 {
		cond = append(cond, sq.Eq{"s.currency": f.Currencies})
	}
	if len(f.Frequencies) > 0 {
		cond = append(cond, sq.Eq{"s.frequency": f.Frequencies})
	}
	if f.PaymentMethod != "" {
		cond = append(cond, sq.ILike{"s.payment_method": containsPattern(f.PaymentMethod)})
	}
	if f.UserEmail != "" {
		cond = append(cond, sq.ILike{"u.email": containsPattern(f.UserEmail)})
	}
	if f.MinPrice != nil {
		cond = append(cond, sq.GtOrEq{"s.price": *f.MinPrice})
	}
	if f.MaxPrice != nil {
		cond = append(cond, sq.LtOrEq{"s.price": *f.MaxPrice})
	}
	if f.StartFrom != nil {
		cond = append(cond, sq.GtOrEq{"s.start_date": *f.StartFrom})
	}
	if f.StartTo != nil {
		cond = append(cond, sq.LtOrEq{"s.start_date": *f.StartTo})
	}
	if f.RenewalFrom != nil {
		cond = append(cond, sq.GtOrEq{"s.renewal_date": *f.RenewalFrom})
	}
	if f.RenewalTo != nil {
		cond = append(cond, sq.LtOrEq{"s.renewal_date": *f.RenewalTo})
	}
	return cond
}

func orderBy(f models.SearchFilter) string {
	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = sortColumns[models.DefaultSortBy]
	}
	dir := "DESC"
	if f.SortOrder == models.SortAsc {
		dir = "ASC"
	}
	return col + " " + dir
}

// SearchSubscriptions возвращает страницу подписок с владельцами и общее число
// записей под фильтром. Страница и счётчик читаются параллельно.
func (s *Storage) SearchSubscriptions(ctx context.Context, f models.SearchFilter) ([]models.SubscriptionWithUser, int, error) {
	const op = "storage.SearchSubscriptions"

	ctx, span := tracer.Start(ctx, "repository.SearchSubscriptions")
	defer span.End()
	span.SetAttributes(
		attribute.Int("search.page", f.Page),
		attribute.Int("search.limit", f.Limit),
		attribute.String("search.sort", orderBy(f)),
	)

	base := psql.Select().From("subscriptions s").Join("users u ON u.uid = s.user_uid")
	if cond := searchConditions(f); len(cond) > 0 {
		base = base.Where(cond)
	}

	itemsSQL, itemsArgs, err := base.
		Columns(subscriptionColumns, "u.uid", "u.name", "u.email").
		OrderBy(orderBy(f), "s.id ASC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: build items: %w", op, err)
	}
	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: build count: %w", op, err)
	}

	var (
		items []models.SubscriptionWithUser
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.DB.Query(gctx, itemsSQL, itemsArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()
		items = []models.SubscriptionWithUser{}
		for rows.Next() {
			var it models.SubscriptionWithUser
			dest := append(subscriptionDest(&it.Subscription), &it.User.UUID, &it.User.Name, &it.User.Email)
			if err := rows.Scan(dest...); err != nil {
				return err
			}
			items = append(items, it)
		}
		return rows.Err()
	})
	g.Go(func() error {
		return s.DB.QueryRow(gctx, countSQL, countArgs...).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	span.SetAttributes(attribute.Int("search.total", total))
	return items, total, nil
}
