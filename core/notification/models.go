package notification

import (
	"time"

	"github.com/volatiletech/null/v8"
)

type Notification struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	LinkURL   string    `json:"link_url"`
	ReadAt    null.Time `json:"read_at"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

func (n Notification) IsRead() bool {
	return n.ReadAt.Valid
}

type QueryFilter struct {
	Recipient  string
	UnreadOnly bool `query:"unread_only"`
	Limit      int  `query:"limit"`
}
