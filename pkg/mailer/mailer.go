package mailer

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"net"
	"net/smtp"
	"regexp"
	"strings"
	"sync"
	"time"

	"loan-auth/config"
	"loan-auth/pkg/logger"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Result describes a successful delivery attempt. MessageID is the value
// written into the Message-ID header, not a provider receipt.
type Result struct {
	MessageID string
}

// Mailer sends email through a configured SMTP relay. The underlying sender
// is built lazily and cached against a fingerprint of the SMTP settings, so
// hot-reloaded credentials take effect on the next send without a restart.
//
// A single delivery attempt is made per call; retrying is left to the caller.
type Mailer struct {
	provider func() config.SMTP
	logger   *logger.Logger

	mu     sync.Mutex
	cached *sender

	// transport is swapped out in tests
	transport transportFunc
}

type transportFunc func(s *sender, from string, to []string, msg []byte, timeout time.Duration) error

// sender is the memoized product of one validated SMTP configuration.
type sender struct {
	addr        string
	host        string
	from        string
	auth        smtp.Auth
	fingerprint string
}

// New creates a Mailer. The provider is consulted on every send so that
// configuration changes are picked up without restarting the process.
func New(provider func() config.SMTP, log *logger.Logger) *Mailer {
	return &Mailer{
		provider:  provider,
		logger:    log,
		transport: smtpTransport,
	}
}

// validateSMTP checks the four required connection settings. Failures here
// are configuration defects, never retried. The loopback guard is literal
// only: it catches "localhost" and loopback IPs but does not resolve
// hostnames, so a DNS name pointing at 127.0.0.1 passes validation and fails
// at dial time instead.
func validateSMTP(cfg config.SMTP) error {
	if strings.TrimSpace(cfg.Host) == "" {
		return fmt.Errorf("smtp host is not configured")
	}
	if cfg.Port <= 0 {
		return fmt.Errorf("smtp port must be a positive number, got %d", cfg.Port)
	}
	if strings.TrimSpace(cfg.Username) == "" {
		return fmt.Errorf("smtp username is not configured")
	}
	if strings.TrimSpace(cfg.Password) == "" {
		return fmt.Errorf("smtp password is not configured")
	}
	if ip := net.ParseIP(cfg.Host); ip != nil && ip.IsLoopback() {
		return fmt.Errorf("smtp host %s is a loopback address", cfg.Host)
	}
	if strings.EqualFold(cfg.Host, "localhost") {
		return fmt.Errorf("smtp host %s is a loopback address", cfg.Host)
	}
	return nil
}

// fingerprint hashes the settings the sender is built from. Comparing it on
// every call is what invalidates the memoized sender after a config reload.
func fingerprint(cfg config.SMTP) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s|%s", cfg.Host, cfg.Port, cfg.Username, cfg.Password)))
	return hex.EncodeToString(h[:])
}

// client returns the cached sender, rebuilding it when the configuration
// fingerprint has changed since the last send.
func (m *Mailer) client() (*sender, time.Duration, *DeliveryError) {
	cfg := m.provider()
	if err := validateSMTP(cfg); err != nil {
		return nil, 0, &DeliveryError{
			Kind: KindNoConfig,
			Hint: "check SMTP_HOST, SMTP_PORT, SMTP_USERNAME and SMTP_PASSWORD",
			Err:  err,
		}
	}

	fp := fingerprint(cfg)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached == nil || m.cached.fingerprint != fp {
		from := cfg.From
		if from == "" {
			from = cfg.Username
		}
		m.cached = &sender{
			addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			host:        cfg.Host,
			from:        from,
			auth:        smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host),
			fingerprint: fp,
		}
		m.logger.Debugw("SMTP sender rebuilt", "host", cfg.Host, "port", cfg.Port)
	}

	return m.cached, cfg.Timeout, nil
}

// Send delivers a single email. When textBody is empty a plain-text
// alternative is derived from the HTML body. Failures come back as
// *DeliveryError with a classified Kind.
func (m *Mailer) Send(to, subject, htmlBody, textBody string) (*Result, error) {
	if strings.TrimSpace(to) == "" {
		return nil, &DeliveryError{Kind: KindEnvelope, Hint: "recipient address is required"}
	}
	if strings.TrimSpace(subject) == "" {
		return nil, &DeliveryError{Kind: KindEnvelope, Hint: "subject is required"}
	}

	s, timeout, derr := m.client()
	if derr != nil {
		m.logger.Errorw("Mail configuration invalid", "error", derr.Err)
		return nil, derr
	}

	if textBody == "" {
		textBody = stripHTML(htmlBody)
	}

	messageID := newMessageID(s.host)
	msg := buildMessage(s.from, to, subject, messageID, htmlBody, textBody)

	if err := m.transport(s, s.from, []string{to}, msg, timeout); err != nil {
		derr := classify(s.host, err)
		m.logger.Errorw("Mail delivery failed",
			"to", to,
			"kind", string(derr.Kind),
			"hint", derr.Hint,
			"error", err,
		)
		return nil, derr
	}

	m.logger.Infow("Mail delivered", "to", to, "subject", subject, "message_id", messageID)
	return &Result{MessageID: messageID}, nil
}

// SendOTP delivers a one-time code. Malformed addresses fail fast with
// INVALID_ADDRESS before any transport attempt is made.
func (m *Mailer) SendOTP(to, code, purpose string) (*Result, error) {
	if !emailPattern.MatchString(to) {
		return nil, &DeliveryError{
			Kind: KindInvalidAddress,
			Hint: fmt.Sprintf("%q is not a valid email address", to),
		}
	}

	subject, htmlBody := otpTemplate(code, purpose)
	return m.Send(to, subject, htmlBody, "")
}

// buildMessage assembles a multipart/alternative MIME message.
func buildMessage(from, to, subject, messageID, htmlBody, textBody string) []byte {
	boundary := newBoundary()

	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	fmt.Fprintf(&sb, "Message-ID: <%s>\r\n", messageID)
	fmt.Fprintf(&sb, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	sb.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&sb, "Content-Type: multipart/alternative; boundary=%s\r\n", boundary)
	sb.WriteString("\r\n")

	fmt.Fprintf(&sb, "--%s\r\n", boundary)
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	sb.WriteString(textBody)
	sb.WriteString("\r\n")

	fmt.Fprintf(&sb, "--%s\r\n", boundary)
	sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	sb.WriteString(htmlBody)
	sb.WriteString("\r\n")

	fmt.Fprintf(&sb, "--%s--", boundary)
	return []byte(sb.String())
}

// smtpTransport is the real transport: dial with a deadline, STARTTLS when
// offered, authenticate, then submit the message.
func smtpTransport(s *sender, from string, to []string, msg []byte, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", s.addr, timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return err
		}
	}

	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(s.auth); err != nil {
			return err
		}
	}

	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return client.Quit()
}

func newMessageID(host string) string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d@%s", time.Now().UnixNano(), host)
	}
	return fmt.Sprintf("%s@%s", hex.EncodeToString(b[:]), host)
}

func newBoundary() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "loan-auth-boundary-fallback"
	}
	return "loan-auth-" + hex.EncodeToString(b[:])
}
