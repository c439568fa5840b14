// Package notifier delivers alert e-mails over SMTP.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barn_climate/internal/logger"

	"github.com/sony/gobreaker"
	"github.com/wneessen/go-mail"
)

const (
	defaultTimeout         = 10 * time.Second
	defaultBreakerFailures = 3
	defaultBreakerOpenFor  = time.Minute
)

// ErrCircuitOpen is returned while the SMTP server is considered down.
var ErrCircuitOpen = errors.New("smtp circuit open")

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration

	// BreakerFailures consecutive failures open the circuit for BreakerOpenFor.
	BreakerFailures int
	BreakerOpenFor  time.Duration
}

// Message is a plain-text e-mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

type sendFunc func(ctx context.Context, msg *mail.Msg) error

// Mailer sends messages through STARTTLS-protected SMTP with PLAIN auth.
type Mailer struct {
	cfg  Config
	cb   *gobreaker.CircuitBreaker
	send sendFunc
	log  *logger.Logger
}

func NewMailer(cfg Config, log *logger.Logger) (*Mailer, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	send := func(ctx context.Context, msg *mail.Msg) error {
		return client.DialAndSendWithContext(ctx, msg)
	}
	return newMailer(cfg, log, send), nil
}

func newMailer(cfg Config, log *logger.Logger, send sendFunc) *Mailer {
	log = logger.OrNop(log)

	fails := cfg.BreakerFailures
	if fails <= 0 {
		fails = defaultBreakerFailures
	}
	openFor := cfg.BreakerOpenFor
	if openFor <= 0 {
		openFor = defaultBreakerOpenFor
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "smtp",
		Timeout: openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(fails)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnw("circuit_state_changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Mailer{cfg: cfg, cb: cb, send: send, log: log}
}

// Send composes and delivers msg. While the circuit is open it fails fast
// with ErrCircuitOpen without contacting the server.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	em := mail.NewMsg()
	if err := em.From(m.cfg.From); err != nil {
		return fmt.Errorf("sender address: %w", err)
	}
	if err := em.To(msg.To); err != nil {
		return fmt.Errorf("recipient address: %w", err)
	}
	em.Subject(msg.Subject)
	em.SetBodyString(mail.TypeTextPlain, msg.Body)

	_, err := m.cb.Execute(func() (any, error) {
		return nil, m.send(ctx, em)
	})
	switch {
	case err == nil:
		m.log.Infow("mail_sent", "to", msg.To, "subject", msg.Subject)
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	default:
		return fmt.Errorf("smtp send: %w", err)
	}
}
