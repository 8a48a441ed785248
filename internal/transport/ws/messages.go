package ws

import "github.com/cwrk-planet/relay-service/internal/domain"

// Типы кадров server→client. Входящие от клиента — сырой текст, без JSON.
const (
	TypeHello   = "hello"   // псевдоним подключившегося, один раз
	TypeHistory = "history" // реплей сохранённых событий при подключении
	TypeEvent   = "event"   // живая рассылка нового события
)

// Frame — плоский JSON-кадр: поля события кладутся рядом с type.
type Frame struct {
	Type     string      `json:"type"`
	Kind     domain.Kind `json:"kind,omitempty"`
	Username string      `json:"username,omitempty"`
	Text     string      `json:"text,omitempty"`
	TS       int64       `json:"ts,omitempty"`
}

func helloFrame(username string) Frame {
	return Frame{Type: TypeHello, Username: username}
}

func historyFrame(e domain.Event) Frame {
	return frameOf(TypeHistory, e)
}

func eventFrame(e domain.Event) Frame {
	return frameOf(TypeEvent, e)
}

func frameOf(typ string, e domain.Event) Frame {
	return Frame{
		Type:     typ,
		Kind:     e.Kind,
		Username: e.Username,
		Text:     e.Text,
		TS:       e.TS,
	}
}
