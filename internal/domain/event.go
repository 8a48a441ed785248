package domain

// Kind различает системные уведомления и сообщения чата.
type Kind string

const (
	KindSystem Kind = "system"
	KindChat   Kind = "chat"
)

// Event — единица истории комнаты и рассылки.
// TS назначается сервером в момент записи (unix millis), не клиентом.
type Event struct {
	Kind     Kind   `json:"kind"`
	Username string `json:"username"`
	Text     string `json:"text"`
	TS       int64  `json:"ts"`
}
