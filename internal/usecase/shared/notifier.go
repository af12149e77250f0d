package shared

import "context"

// EmailMessage is a rendered notification ready for delivery.
type EmailMessage struct {
	ToEmail   string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

type Notifier interface {
	Send(ctx context.Context, msg EmailMessage) error
}
