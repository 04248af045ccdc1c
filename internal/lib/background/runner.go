// Package background запускает побочные задачи (письма, триггеры workflow),
// результат которых не должен влиять на уже зафиксированную операцию.
package background

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
)

// Runner выполняет задачи в отдельных горутинах с ограничением по числу
// одновременно работающих задач и таймаутом на каждую.
type Runner struct {
	group   errgroup.Group
	timeout time.Duration
	log     *slog.Logger
}

// New создает Runner. limit <= 0 снимает ограничение на число задач.
func New(log *slog.Logger, limit int, timeout time.Duration) *Runner {
	r := &Runner{
		timeout: timeout,
		log:     log,
	}
	if limit > 0 {
		r.group.SetLimit(limit)
	}
	return r
}

// Go запускает fn с контекстом, отвязанным от отмены ctx, но сохраняющим его значения.
// Ошибка fn только логируется. Если все слоты заняты, задача отбрасывается.
func (r *Runner) Go(ctx context.Context, name string, fn func(ctx context.Context) error) bool {
	detached := context.WithoutCancel(ctx)
	started := r.group.TryGo(func() error {
		taskCtx, cancel := context.WithTimeout(detached, r.timeout)
		defer cancel()

		if err := fn(taskCtx); err != nil {
			r.log.Warn("background task failed", slog.String("task", name), sl.Err(err))
		}
		return nil
	})
	if !started {
		r.log.Warn("background task dropped, runner is saturated", slog.String("task", name))
	}
	return started
}

// Wait дожидается завершения всех запущенных задач.
func (r *Runner) Wait() {
	_ = r.group.Wait()
}
