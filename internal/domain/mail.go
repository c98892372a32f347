package domain

import "context"

const ContentTypePDF = "application/pdf"

// Attachment is one file attached to a Message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a provider independent outbound email.
type Message struct {
	FromName    string
	From        string
	To          string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
