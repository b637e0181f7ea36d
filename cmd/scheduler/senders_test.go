package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-reminder-scheduler/internal/config"
	"github.com/tbourn/go-reminder-scheduler/internal/domain"
	"github.com/tbourn/go-reminder-scheduler/internal/notify"
)

func TestBuildSenders_NoneConfigured(t *testing.T) {
	var buf bytes.Buffer
	senders, err := buildSenders(config.Config{}, zerolog.New(&buf))
	if err != nil {
		t.Fatalf("buildSenders: %v", err)
	}
	if len(senders) != 0 {
		t.Fatalf("senders = %v; want none", senders)
	}
	if n := strings.Count(buf.String(), "channel not configured"); n != len(domain.Channels) {
		t.Fatalf("warnings = %d; want %d", n, len(domain.Channels))
	}
}

func TestBuildSenders_AllChannels(t *testing.T) {
	cfg := config.Config{
		SMTP: config.SMTPConfig{Host: "mail", Port: 587, From: "firm@example.com"},
		SMS: config.SMSConfig{
			GatewayURL:   "https://gw.example.com",
			SMSFrom:      "+15550001",
			WhatsAppFrom: "+15550002",
		},
		Send: config.SendConfig{Timeout: time.Second, EmailRateRPS: 5, SMSRateRPS: 1, RateBurst: 2},
	}
	senders, err := buildSenders(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("buildSenders: %v", err)
	}
	for _, ch := range domain.Channels {
		if _, ok := senders[ch]; !ok {
			t.Fatalf("missing %s sender", ch)
		}
	}
	sms, ok1 := senders[domain.ChannelSMS].(*notify.RateLimited)
	wa, ok2 := senders[domain.ChannelWhatsApp].(*notify.RateLimited)
	if !ok1 || !ok2 || sms.Limiter != wa.Limiter {
		t.Fatal("sms and whatsapp must share one limiter")
	}
}

func TestBuildSenders_SMSOnlyAndUnlimited(t *testing.T) {
	cfg := config.Config{
		SMS:  config.SMSConfig{GatewayURL: "https://gw.example.com", SMSFrom: "+15550001"},
		Send: config.SendConfig{Timeout: time.Second},
	}
	senders, err := buildSenders(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("buildSenders: %v", err)
	}
	if _, ok := senders[domain.ChannelSMS].(*notify.SMSSender); !ok {
		t.Fatalf("rate 0 must leave the sender unwrapped, got %T", senders[domain.ChannelSMS])
	}
	if _, ok := senders[domain.ChannelWhatsApp]; ok {
		t.Fatal("whatsapp must be absent without WHATSAPP_FROM")
	}
}

func TestBuildSenders_BadGatewayURL(t *testing.T) {
	cfg := config.Config{SMS: config.SMSConfig{GatewayURL: "gw", SMSFrom: "+1"}}
	if _, err := buildSenders(cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected gateway url error")
	}
}
