package notifier

import (
	"context"
	"log/slog"

	"tourism-booking/internal/pkg/config"
	"tourism-booking/internal/pkg/errs"
	"tourism-booking/internal/usecase/shared"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	defaultHost  = "https://api.sendgrid.com"
	mailEndpoint = "/v3/mail/send"
)

var ErrDeliveryRejected = errs.New("email delivery rejected")

type SendGridNotifier struct {
	apiKey    string
	host      string
	fromEmail string
	fromName  string
}

var _ shared.Notifier = (*SendGridNotifier)(nil)

func NewSendGridNotifier(cfg config.NotifierConfig) *SendGridNotifier {
	return NewSendGridNotifierWithHost(cfg, defaultHost)
}

// NewSendGridNotifierWithHost points the client at another API host.
func NewSendGridNotifierWithHost(cfg config.NotifierConfig, host string) *SendGridNotifier {
	return &SendGridNotifier{
		apiKey:    cfg.SendGridAPIKey,
		host:      host,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

func (n *SendGridNotifier) Send(ctx context.Context, msg shared.EmailMessage) error {
	from := mail.NewEmail(n.fromName, n.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.PlainText, msg.HTML)

	req := sendgrid.GetRequest(n.apiKey, mailEndpoint, n.host)
	req.Method = rest.Post
	req.Body = mail.GetRequestBody(message)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return errs.Wrap(err, "send email")
	}
	if resp.StatusCode >= 400 {
		return errs.WithDetail(
			errs.Mark(errs.Newf("sendgrid status %d", resp.StatusCode), ErrDeliveryRejected),
			resp.Body,
		)
	}
	return nil
}

// LogNotifier only logs messages; used when no SendGrid key is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (LogNotifier) Send(_ context.Context, msg shared.EmailMessage) error {
	slog.Info("email notification", "to", msg.ToEmail, "subject", msg.Subject)
	return nil
}

// New selects SendGrid when an API key is configured.
func New(cfg config.NotifierConfig) shared.Notifier {
	if cfg.SendGridAPIKey == "" {
		slog.Warn("SENDGRID_API_KEY not set; notifications are logged only")
		return NewLogNotifier()
	}
	return NewSendGridNotifier(cfg)
}
