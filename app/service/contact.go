package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-accounts/app/mailer"
	"github.com/vibast-solutions/ms-go-accounts/app/ratelimit"
	"github.com/vibast-solutions/ms-go-accounts/config"
)

var ErrContactCooldown = errors.New("please wait before sending another message")

// ContactService relays contact form submissions to the configured inbox,
// throttled per client address.
type ContactService struct {
	mail    mailer.Mailer
	limiter ratelimit.Limiter
	cfg     *config.Config
}

func NewContactService(mail mailer.Mailer, limiter ratelimit.Limiter, cfg *config.Config) *ContactService {
	return &ContactService{mail: mail, limiter: limiter, cfg: cfg}
}

// Submit relays one message. A limiter backend failure counts as allow:
// losing the throttle is better than losing the contact form.
func (s *ContactService) Submit(ctx context.Context, clientIP, name, email, subject, message string) error {
	allowed, err := s.limiter.Allow(ctx, "contact:"+clientIP)
	if err != nil {
		logrus.WithError(err).Warn("contact rate limiter unavailable, allowing request")
		allowed = true
	}
	if !allowed {
		return ErrContactCooldown
	}

	mailSubject, body := mailer.ContactMessage(name, email, subject, message)
	if err := s.mail.Send(ctx, s.cfg.Contact.Inbox, mailSubject, body); err != nil {
		return fmt.Errorf("%w: %s", ErrEmailDispatch, err.Error())
	}
	return nil
}
