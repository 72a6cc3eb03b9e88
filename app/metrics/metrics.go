package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SignupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "accounts_signups_total", Help: "Sign-up attempts by outcome"},
		[]string{"outcome"},
	)
	SigninsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "accounts_signins_total", Help: "Sign-in attempts by method and outcome"},
		[]string{"method", "outcome"},
	)
	PasswordResetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "accounts_password_resets_total", Help: "Password reset requests and consumptions by outcome"},
		[]string{"stage", "outcome"},
	)
	ContactMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "accounts_contact_messages_total", Help: "Contact relay submissions by outcome"},
		[]string{"outcome"},
	)
)

func MustRegister() {
	prometheus.MustRegister(SignupsTotal, SigninsTotal, PasswordResetsTotal, ContactMessagesTotal)
}
