package ws

import (
	"encoding/json"
	"log/slog"

	"github.com/cwrk-planet/relay-service/internal/domain"
)

// Broadcaster рассылает событие всем живым соединениям.
// Доставка best-effort: ошибка отправки одному не мешает остальным
// и не поднимается наверх — упавшее соединение уберёт его же read loop.
type Broadcaster struct {
	hub *Hub
	log *slog.Logger
}

func NewBroadcaster(hub *Hub, log *slog.Logger) *Broadcaster {
	return &Broadcaster{hub: hub, log: log}
}

// Publish сериализует кадр один раз и шлёт его по снапшоту реестра.
func (b *Broadcaster) Publish(e domain.Event) {
	data, err := json.Marshal(eventFrame(e))
	if err != nil {
		b.log.Error("event marshal failed", "kind", e.Kind, "err", err)
		return
	}

	b.hub.ForEach(func(c Conn, username string) {
		if err := c.Send(data); err != nil {
			b.log.Debug("send dropped", "username", username, "err", err)
		}
	})
}
