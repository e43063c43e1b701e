package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"login-guard/internal/config"
	"login-guard/internal/models"
	"login-guard/internal/util"
)

const defaultTimeout = 15 * time.Second

// SMTPTransport delivers alert emails through one SMTP relay. Each message
// gets its own connection.
type SMTPTransport struct {
	cfg     config.SMTPConfig
	timeout time.Duration
	options []mail.Option
	logger  *zap.Logger
}

func NewSMTPTransport(cfg config.SMTPConfig, logger *zap.Logger) *SMTPTransport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(timeout),
		mail.WithTLSPolicy(tlsPolicy(cfg.TLSPolicy)),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	return &SMTPTransport{cfg: cfg, timeout: timeout, options: opts, logger: logger.Named("smtp")}
}

func (t *SMTPTransport) Send(ctx context.Context, email models.Email, settings models.RealmMailSettings) error {
	msg, err := t.buildMessage(email, settings)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	client, err := mail.NewClient(t.cfg.Host, t.options...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", t.cfg.Host, err)
	}

	t.logger.Debug("Email delivered", zap.String("subject", email.Subject))
	return nil
}

// buildMessage applies the realm's sender override on top of the defaults.
func (t *SMTPTransport) buildMessage(email models.Email, settings models.RealmMailSettings) (*mail.Msg, error) {
	from := util.ValueOr(settings.From, t.cfg.From)
	fromName := util.SanitizeHeader(util.ValueOr(settings.FromDisplayName, t.cfg.FromName))

	msg := mail.NewMsg()
	if err := msg.FromFormat(fromName, from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := msg.AddToFormat(util.SanitizeHeader(email.ToName), email.To); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	if settings.ReplyTo != "" {
		if err := msg.ReplyTo(settings.ReplyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to %q: %w", settings.ReplyTo, err)
		}
	}
	msg.Subject(util.SanitizeHeader(email.Subject))
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, email.TextBody)
	if email.HTMLBody != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, email.HTMLBody)
	}
	return msg, nil
}

func tlsPolicy(name string) mail.TLSPolicy {
	switch name {
	case "mandatory":
		return mail.TLSMandatory
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}
