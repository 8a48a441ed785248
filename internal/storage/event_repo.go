package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cwrk-planet/relay-service/internal/domain"

	"github.com/google/uuid"
)

const keyPrefix = "m:"

// EventRepository — append-only история комнаты поверх KV.
// Ключ "m:{bucket}:{ts}:{nonce}": nonce разводит события одной миллисекунды,
// TTL на записи равен окну хранения от момента записи.
type EventRepository struct {
	kv     KV
	window time.Duration
	limit  int
	log    *slog.Logger

	now func() time.Time
}

func NewEventRepository(kv KV, window time.Duration, historyLimit int, log *slog.Logger) *EventRepository {
	if historyLimit <= 0 {
		historyLimit = 200
	}
	return &EventRepository{
		kv:     kv,
		window: window,
		limit:  historyLimit,
		log:    log,
		now:    time.Now,
	}
}

// Append персистит событие и возвращает ключ записи.
func (r *EventRepository) Append(ctx context.Context, e domain.Event) (string, error) {
	if err := validate(e); err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s%d:%d:%s",
		keyPrefix,
		domain.BucketOf(e.TS, r.window),
		e.TS,
		uuid.NewString()[:8],
	)
	value, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	if err := r.kv.Put(ctx, key, value, r.window); err != nil {
		return "", fmt.Errorf("put event: %w", err)
	}
	return key, nil
}

// Recent возвращает события текущей корзины по возрастанию ts.
// Любая ошибка чтения — пустая история, подключение клиента не ломаем;
// нечитаемые значения пропускаются поштучно.
func (r *EventRepository) Recent(ctx context.Context) []domain.Event {
	prefix := fmt.Sprintf("%s%d:", keyPrefix, domain.BucketOf(r.now().UnixMilli(), r.window))

	keys, err := r.kv.List(ctx, prefix, r.limit)
	if err != nil {
		r.log.Warn("history list failed", "prefix", prefix, "err", err)
		return nil
	}

	events := make([]domain.Event, 0, len(keys))
	for _, key := range keys {
		value, err := r.kv.Get(ctx, key)
		if err != nil {
			r.log.Debug("history get failed", "key", key, "err", err)
			continue
		}
		var e domain.Event
		if err := json.Unmarshal(value, &e); err != nil {
			r.log.Debug("history value unparseable", "key", key, "err", err)
			continue
		}
		events = append(events, e)
	}

	// порядок листинга по ключам не numeric-safe из-за разной ширины nonce,
	// поэтому пересортировка по ts обязательна
	sort.SliceStable(events, func(i, j int) bool { return events[i].TS < events[j].TS })

	return events
}

func validate(e domain.Event) error {
	if e.Kind == "" {
		return domain.ErrMissingKind
	}
	if e.TS == 0 {
		return domain.ErrMissingTS
	}
	if e.Kind == domain.KindChat && strings.TrimSpace(e.Text) == "" {
		return domain.ErrEmptyText
	}
	return nil
}
