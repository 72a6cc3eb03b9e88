package oauth

import (
	"strings"
	"testing"
)

func TestStateRoundTrip(t *testing.T) {
	p := NewGithub("id", "secret", "http://localhost/cb", "state-key")

	state := p.MakeState("nonce-123")
	if !strings.HasPrefix(state, "nonce-123.") {
		t.Fatalf("state should carry the nonce: %q", state)
	}
	if !p.VerifyState(state) {
		t.Fatalf("state should verify")
	}
}

func TestStateRejectsTampering(t *testing.T) {
	p := NewGithub("id", "secret", "http://localhost/cb", "state-key")

	state := p.MakeState("nonce-123")
	if p.VerifyState("other-nonce." + strings.SplitN(state, ".", 2)[1]) {
		t.Fatalf("tampered nonce should fail")
	}
	if p.VerifyState("no-signature") {
		t.Fatalf("unsigned state should fail")
	}

	other := NewGithub("id", "secret", "http://localhost/cb", "different-key")
	if other.VerifyState(state) {
		t.Fatalf("state signed with another key should fail")
	}
}

func TestAuthURLCarriesState(t *testing.T) {
	p := NewGoogle("id", "secret", "http://localhost/cb", "state-key")

	url := p.AuthURL("the-state")
	if !strings.Contains(url, "state=the-state") {
		t.Fatalf("auth url should carry the state: %q", url)
	}
	if p.Name() != "google" {
		t.Fatalf("unexpected provider name: %q", p.Name())
	}
}
