package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-reminder-scheduler/internal/config"
	"github.com/tbourn/go-reminder-scheduler/internal/domain"
	"github.com/tbourn/go-reminder-scheduler/internal/notify"
	"github.com/tbourn/go-reminder-scheduler/internal/services"
)

// buildSenders returns a rate-limited transport for every configured channel.
// Unconfigured channels are left out; the dispatcher skips their targets.
// SMS and WhatsApp share one limiter since they share one gateway account.
func buildSenders(cfg config.Config, lg zerolog.Logger) (map[domain.Channel]services.Sender, error) {
	senders := make(map[domain.Channel]services.Sender, len(domain.Channels))

	if cfg.SMTP.Enabled() {
		s, err := notify.NewSMTPSender(cfg.SMTP)
		if err != nil {
			return nil, fmt.Errorf("email transport: %w", err)
		}
		senders[domain.ChannelEmail] = notify.Limit(s, notify.NewLimiter(cfg.Send.EmailRateRPS, cfg.Send.RateBurst))
	}

	if cfg.SMS.SMSEnabled() || cfg.SMS.WhatsAppEnabled() {
		gw, err := notify.NewGatewayClient(cfg.SMS, cfg.Send.Timeout)
		if err != nil {
			return nil, fmt.Errorf("sms gateway: %w", err)
		}
		limiter := notify.NewLimiter(cfg.Send.SMSRateRPS, cfg.Send.RateBurst)
		if s, err := notify.NewSMSSender(gw, cfg.SMS.SMSFrom); err == nil {
			senders[domain.ChannelSMS] = notify.Limit(s, limiter)
		} else if !errors.Is(err, notify.ErrNotConfigured) {
			return nil, err
		}
		if s, err := notify.NewWhatsAppSender(gw, cfg.SMS.WhatsAppFrom); err == nil {
			senders[domain.ChannelWhatsApp] = notify.Limit(s, limiter)
		} else if !errors.Is(err, notify.ErrNotConfigured) {
			return nil, err
		}
	}

	for _, ch := range domain.Channels {
		if _, ok := senders[ch]; !ok {
			lg.Warn().Str("channel", string(ch)).Msg("channel not configured; its recipients will be skipped")
		}
	}
	return senders, nil
}
