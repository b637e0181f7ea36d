package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-reminder-scheduler/internal/config"
	"github.com/tbourn/go-reminder-scheduler/internal/observability"
)

// SMTPSender sends HTML email over one SMTP session per message.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	StartTLS bool

	// TLSConfig overrides the STARTTLS configuration; nil uses ServerName=Host.
	TLSConfig *tls.Config

	now func() time.Time
}

// NewSMTPSender builds a sender from cfg. It fails with ErrNotConfigured when
// the host or from address is missing.
func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	if !cfg.Enabled() || strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("smtp: %w", ErrNotConfigured)
	}
	return &SMTPSender{
		Host:     strings.TrimSpace(cfg.Host),
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     strings.TrimSpace(cfg.From),
		StartTLS: cfg.StartTLS,
	}, nil
}

// Send delivers body as text/html to a single address. The connection honours
// ctx for dialing and uses its deadline for the whole session.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) (err error) {
	ctx, span := observability.Tracer("notify/SMTPSender").Start(ctx, "Send",
		trace.WithAttributes(attribute.String("smtp.host", s.Host)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "smtp send failed")
		}
		span.End()
	}()

	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if s.StartTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			tlsCfg := s.TLSConfig
			if tlsCfg == nil {
				tlsCfg = &tls.Config{ServerName: s.Host}
			}
			if err := c.StartTLS(tlsCfg); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if s.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.Username, s.Password, s.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(s.From); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("%w: smtp RCPT TO: %v", ErrRejected, err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(s.buildMessage(to, subject, body)); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: smtp end of data: %v", ErrRejected, err)
	}
	return c.Quit()
}

func (s *SMTPSender) buildMessage(to, subject, body string) []byte {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	domain := s.Host
	if i := strings.LastIndex(s.From, "@"); i >= 0 {
		domain = s.From[i+1:]
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", s.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now().UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", uuid.NewString(), domain)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}
