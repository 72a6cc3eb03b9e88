package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/service"
	"github.com/vibast-solutions/ms-go-accounts/config"
)

type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

func newContactService(limiter *stubLimiter) (*service.ContactService, *fakeMailer) {
	mail := &fakeMailer{}
	cfg := &config.Config{
		Contact: config.ContactConfig{Inbox: "inbox@example.com", Cooldown: time.Minute},
	}
	return service.NewContactService(mail, limiter, cfg), mail
}

func TestContactSubmit_RelaysToInbox(t *testing.T) {
	svc, mail := newContactService(&stubLimiter{allow: true})

	err := svc.Submit(context.Background(), "1.2.3.4", "Alice", "alice@example.com", "A subject", "A long enough message")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if len(mail.sent) != 1 || mail.sent[0].To != "inbox@example.com" {
		t.Fatalf("expected relay to inbox, got %+v", mail.sent)
	}
}

func TestContactSubmit_Throttled(t *testing.T) {
	limiter := &stubLimiter{allow: false}
	svc, mail := newContactService(limiter)

	err := svc.Submit(context.Background(), "1.2.3.4", "Alice", "alice@example.com", "A subject", "A long enough message")
	if !errors.Is(err, service.ErrContactCooldown) {
		t.Fatalf("expected ErrContactCooldown, got %v", err)
	}
	if len(mail.sent) != 0 {
		t.Fatalf("throttled message must not be sent")
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "contact:1.2.3.4" {
		t.Fatalf("expected limiter keyed by client ip, got %v", limiter.keys)
	}
}

func TestContactSubmit_LimiterFailureAllows(t *testing.T) {
	svc, mail := newContactService(&stubLimiter{err: errors.New("redis down")})

	err := svc.Submit(context.Background(), "1.2.3.4", "Alice", "alice@example.com", "A subject", "A long enough message")
	if err != nil {
		t.Fatalf("expected delivery despite limiter failure, got %v", err)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("expected message to be relayed")
	}
}
