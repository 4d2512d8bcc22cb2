package events

import (
	"context"
	"log/slog"

	"cashflow/internal/cache"
	"cashflow/internal/service"
	"cashflow/internal/worker"
)

var invalidateReports = service.InvalidateReports

// Notifier 在 movement 異動後讓報表快取失效並送出事件
type Notifier struct {
	cache     cache.Cache
	publisher Publisher
	pool      worker.Pool
}

func NewNotifier(c cache.Cache, p Publisher, pool worker.Pool) *Notifier {
	return &Notifier{cache: c, publisher: p, pool: pool}
}

// MovementChanged 同步清除報表快取，事件則交由 worker pool 非同步發送。
// 兩者失敗都只記錄，不影響已完成的寫入
func (n *Notifier) MovementChanged(ctx context.Context, action Action, movementID string, actorID int) {
	if err := invalidateReports(ctx, n.cache); err != nil {
		slog.WarnContext(ctx, "report cache invalidation failed", "error", err)
	}

	e := MovementEvent{Action: action, MovementID: movementID, ActorID: actorID, OccurredAt: timeNow().UTC()}
	ok := n.pool.Submit(func() {
		pctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := n.publisher.Publish(pctx, e); err != nil {
			slog.Error("publish movement event failed", "error", err, "movement_id", movementID)
		}
	})
	if !ok {
		slog.WarnContext(ctx, "worker pool stopped, movement event dropped", "movement_id", movementID)
	}
}
