// Package messaging abstracts the single outbound channel conduit sends
// replies over. The dispatcher never talks to a transport SDK directly: it
// depends only on Client, so the concrete webhook wiring (WhatsApp-style
// Cloud API, or a test double) stays swappable.
package messaging

import "context"

// InboundMessage is a normalized inbound payload handed to the dispatcher
// by the webhook HTTP layer, independent of the wire format it arrived in.
type InboundMessage struct {
	Handle            string // sender identity, e.g. phone number or user id
	Text              string
	ExternalMessageID string
	Attachments       []Attachment
}

// Attachment is a non-text payload attached to an inbound message.
type Attachment struct {
	MimeType string
	URL      string
}

// Client is the minimal outbound contract the dispatcher depends on.
type Client interface {
	// SendMessage delivers text to the given handle and returns the
	// transport's external message id, if any.
	SendMessage(ctx context.Context, to, text string) (externalID string, err error)
}

// ClientFunc adapts a function to Client, for tests and simple wiring.
type ClientFunc func(ctx context.Context, to, text string) (string, error)

func (f ClientFunc) SendMessage(ctx context.Context, to, text string) (string, error) {
	return f(ctx, to, text)
}
