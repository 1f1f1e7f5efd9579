package mailer

import (
	"context"
	"errors"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
)

// SMTPSender relays through an SMTP server. A new connection is dialed per
// send; the due set of one invocation is small.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	timeout  time.Duration
}

func NewSMTPSender(cfg Config) *SMTPSender {
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     port,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		timeout:  timeout,
	}
}

func (s *SMTPSender) Send(ctx context.Context, n domain.Notification) error {
	msg, err := buildMessage(n)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.host, s.clientOptions()...)
	if err != nil {
		return wrapDelivery("create smtp client", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		err = wrapDelivery("send", err)
		var se *mail.SendError
		if errors.As(err, &se) && se.Reason == mail.ErrSMTPRcptTo && !se.IsTemp() {
			return rejected(err)
		}
		return err
	}
	return nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	// Unauthenticated relays (e.g. a local Mailhog) often lack TLS.
	policy := mail.TLSOpportunistic
	if s.username != "" {
		policy = mail.TLSMandatory
	}
	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithTimeout(s.timeout),
		mail.WithTLSPolicy(policy),
	}
	if s.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.username),
			mail.WithPassword(s.password),
		)
	}
	return opts
}

func buildMessage(n domain.Notification) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.From); err != nil {
		return nil, wrapDelivery("invalid sender", err)
	}
	if err := msg.To(n.To); err != nil {
		return nil, rejected(wrapDelivery("invalid recipient", err))
	}
	msg.Subject(n.Subject)
	msg.SetBodyString(mail.TypeTextHTML, n.HTML)
	return msg, nil
}
