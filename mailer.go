package authentic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"
)

// Message types carried in the "type" field.
const (
	MessageTypeSignup                = "signup"
	MessageTypeChangePasswordRequest = "change-password-request"
)

// Message is the payload handed to the mail collaborator: arbitrary
// string fields plus type, email, and either confirmToken/confirmUrl
// or changeToken/changeUrl. Password values never appear here.
type Message map[string]string

// Mailer delivers auth emails. Delivery is synchronous: a failure
// aborts the triggering flow. Implementations should honor ctx for
// cancellation since delivery is the only unbounded-latency step.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the logger instead of sending them.
// It is the default collaborator, useful in development and tests.
type LogMailer struct {
	logger Logger
}

var _ Mailer = (*LogMailer)(nil)

func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode mail message")
	}

	m.logger.Info("%s", string(payload))
	return nil
}

// SMTPMailer delivers messages over SMTP. Bodies come from, in order:
// an "html" passthrough field, a rendered template named after the
// message type, or a plain fallback carrying the action link.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	engine   *django.Engine
	logger   Logger
}

var _ Mailer = (*SMTPMailer)(nil)

type SMTPMailerOption func(*SMTPMailer)

// WithMailTemplates sets the template engine used to render bodies.
// Templates are looked up by message type, e.g. "signup.html".
func WithMailTemplates(engine *django.Engine) SMTPMailerOption {
	return func(m *SMTPMailer) {
		m.engine = engine
	}
}

// WithMailerLogger overrides the logger.
func WithMailerLogger(logger Logger) SMTPMailerOption {
	return func(m *SMTPMailer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func NewSMTPMailer(host string, port int, username, password, from string, opts ...SMTPMailerOption) *SMTPMailer {
	m := &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// NewMailTemplateEngine loads django templates from dir, one per
// message type.
func NewMailTemplateEngine(dir string) (*django.Engine, error) {
	engine := django.New(dir, ".html")
	if err := engine.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to load mail templates")
	}
	return engine, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	to := msg["email"]
	if to == "" {
		return goerrors.New("mail message missing recipient", goerrors.CategoryBadInput)
	}

	mail := gomail.NewMessage()
	mail.SetHeader("From", m.fromAddress(msg))
	mail.SetHeader("To", to)
	mail.SetHeader("Subject", m.subject(msg))
	mail.SetBody("text/html", m.body(msg))

	dialer := gomail.NewDialer(m.host, m.port, m.username, m.password)

	// gomail has no context support; bound delivery by the caller's ctx
	errCh := make(chan error, 1)
	go func() {
		errCh <- dialer.DialAndSend(mail)
	}()

	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "email delivery cancelled")
	case err := <-errCh:
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "smtp delivery failed")
		}
	}

	m.logger.Info("email sent", "to", to, "type", msg["type"])
	return nil
}

func (m *SMTPMailer) fromAddress(msg Message) string {
	if from := msg["from"]; from != "" {
		return from
	}
	return m.from
}

func (m *SMTPMailer) subject(msg Message) string {
	if subject := msg["subject"]; subject != "" {
		return subject
	}

	switch msg["type"] {
	case MessageTypeChangePasswordRequest:
		return "Password change request"
	default:
		return "Confirm your email"
	}
}

func (m *SMTPMailer) body(msg Message) string {
	if html := msg["html"]; html != "" {
		return html
	}

	if m.engine != nil {
		binding := make(map[string]any, len(msg))
		for k, v := range msg {
			binding[k] = v
		}

		var buf bytes.Buffer
		if err := m.engine.Render(&buf, msg["type"], binding); err == nil {
			return buf.String()
		}
		m.logger.Warn("mail template render failed, using fallback body", "type", msg["type"])
	}

	link := msg["confirmUrl"]
	if link == "" {
		link = msg["changeUrl"]
	}
	if link == "" {
		return fmt.Sprintf("<p>Your verification code: %s%s</p>", msg["confirmToken"], msg["changeToken"])
	}

	return fmt.Sprintf(`<p><a href="%s">Follow this link to continue.</a></p>`, link)
}
