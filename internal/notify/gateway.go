package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-reminder-scheduler/internal/config"
	"github.com/tbourn/go-reminder-scheduler/internal/observability"
)

const (
	whatsappPrefix   = "whatsapp:"
	maxErrorBodySize = 512
	userAgent        = "reminder-scheduler"
)

// GatewayClient posts messages to an HTTP SMS gateway that accepts a
// form-encoded To/From/Body request at {BaseURL}/Messages, authenticated with
// HTTP basic auth. Any 2xx answer counts as accepted.
type GatewayClient struct {
	BaseURL    string
	AccountID  string
	AuthToken  string
	HTTPClient *http.Client
}

// NewGatewayClient builds a client for cfg.GatewayURL. timeout bounds each
// request in addition to the caller's context.
func NewGatewayClient(cfg config.SMSConfig, timeout time.Duration) (*GatewayClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.GatewayURL), "/")
	if base == "" {
		return nil, fmt.Errorf("sms gateway: %w", ErrNotConfigured)
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("sms gateway url: %w", err)
	}
	return &GatewayClient{
		BaseURL:    base,
		AccountID:  cfg.AccountID,
		AuthToken:  cfg.AuthToken,
		HTTPClient: &http.Client{Timeout: timeout},
	}, nil
}

// Post submits one message. Transport failures are returned wrapped; a non-2xx
// status is reported as ErrRejected with the start of the response body.
func (g *GatewayClient) Post(ctx context.Context, from, to, body string) (err error) {
	ctx, span := observability.Tracer("notify/GatewayClient").Start(ctx, "Post",
		trace.WithAttributes(attribute.String("gateway.url", g.BaseURL)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "gateway post failed")
		}
		span.End()
	}()

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/Messages", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	if g.AccountID != "" || g.AuthToken != "" {
		req.SetBasicAuth(g.AccountID, g.AuthToken)
	}

	client := g.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	return fmt.Errorf("%w: gateway returned HTTP %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(snippet)))
}

// SMSSender sends plain SMS through a gateway.
type SMSSender struct {
	Gateway *GatewayClient
	From    string
}

// NewSMSSender returns ErrNotConfigured when from is blank.
func NewSMSSender(g *GatewayClient, from string) (*SMSSender, error) {
	from = strings.TrimSpace(from)
	if g == nil || from == "" {
		return nil, fmt.Errorf("sms: %w", ErrNotConfigured)
	}
	return &SMSSender{Gateway: g, From: from}, nil
}

// Send ignores subject; SMS carries the plain body only.
func (s *SMSSender) Send(ctx context.Context, to, _ string, body string) error {
	return s.Gateway.Post(ctx, s.From, to, body)
}

// WhatsAppSender sends through the same gateway with both numbers in the
// "whatsapp:" address form.
type WhatsAppSender struct {
	Gateway *GatewayClient
	From    string
}

// NewWhatsAppSender returns ErrNotConfigured when from is blank.
func NewWhatsAppSender(g *GatewayClient, from string) (*WhatsAppSender, error) {
	from = strings.TrimSpace(from)
	if g == nil || from == "" {
		return nil, fmt.Errorf("whatsapp: %w", ErrNotConfigured)
	}
	return &WhatsAppSender{Gateway: g, From: from}, nil
}

// Send ignores subject.
func (s *WhatsAppSender) Send(ctx context.Context, to, _ string, body string) error {
	return s.Gateway.Post(ctx, whatsappAddress(s.From), whatsappAddress(to), body)
}

func whatsappAddress(n string) string {
	n = strings.TrimSpace(n)
	if strings.HasPrefix(n, whatsappPrefix) {
		return n
	}
	return whatsappPrefix + n
}
