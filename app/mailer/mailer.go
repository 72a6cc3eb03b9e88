package mailer

import (
	"context"
	"fmt"
	"net/url"
)

// Mailer delivers a single transactional email. Implementations must return
// an error on failure; callers treat dispatch failure as fatal for the
// operation that triggered it.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// VerificationMessage builds the subject and body of the email-verification
// message, including a one-click link back to the application.
func VerificationMessage(baseURL, email, code string) (subject, body string) {
	link := fmt.Sprintf("%s/auth/verify-email?email=%s&code=%s", baseURL, url.QueryEscape(email), code)
	subject = "Verify your email address"
	body = fmt.Sprintf(
		"<p>Your verification code is: <strong>%s</strong>. It will expire in 24 hours.</p>"+
			"<p>You can also click on the following link to verify your email: "+
			"<a href=%q>Verify my email</a></p>",
		code, link,
	)
	return subject, body
}

func ResendVerificationMessage(baseURL, email, code string) (subject, body string) {
	_, body = VerificationMessage(baseURL, email, code)
	return "New verification code", body
}

func PasswordResetMessage(baseURL, token string) (subject, body string) {
	link := fmt.Sprintf("%s/auth/reset-password?token=%s", baseURL, token)
	subject = "Reset your password"
	body = fmt.Sprintf(
		"<p>A password reset was requested for your account. The link below is valid for one hour.</p>"+
			"<p><a href=%q>Reset my password</a></p>"+
			"<p>If you did not request this, you can ignore this email.</p>",
		link,
	)
	return subject, body
}

func ContactMessage(name, email, subject, message string) (mailSubject, body string) {
	mailSubject = fmt.Sprintf("New contact message: %s", subject)
	body = fmt.Sprintf(
		"<h1>New contact message</h1>"+
			"<p><strong>Name:</strong> %s</p>"+
			"<p><strong>Email:</strong> %s</p>"+
			"<p><strong>Subject:</strong> %s</p>"+
			"<p><strong>Message:</strong></p>"+
			"<p>%s</p>",
		name, email, subject, message,
	)
	return mailSubject, body
}
