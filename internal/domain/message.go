package domain

import "time"

// Message is one entry in a ticket's conversation thread. Append-only.
type Message struct {
	ID         string
	TicketID   string
	AuthorID   string
	AuthorRole Role
	Body       string
	IsInternal bool
	CreatedAt  time.Time
}

// Attachment stores passive file metadata owned by a ticket or a message.
// The engine never interprets attachment content.
type Attachment struct {
	ID        string
	TicketID  *string
	MessageID *string
	URL       string
	MimeType  string
	Kind      string
	CreatedAt time.Time
}
