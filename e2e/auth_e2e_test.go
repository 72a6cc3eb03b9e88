//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

const defaultHTTPBase = "http://localhost:8080"

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient() *httpClient {
	base := os.Getenv("ACCOUNTS_HTTP_URL")
	if base == "" {
		base = defaultHTTPBase
	}
	return &httpClient{
		baseURL: base,
		client: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *httpClient) postJSON(t *testing.T, path string, body any) (*http.Response, []byte) {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("json marshal failed: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}
	return resp, bodyBytes
}

func (c *httpClient) get(t *testing.T, path string) *http.Response {
	t.Helper()

	resp, err := c.client.Get(c.baseURL + path)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	resp.Body.Close()
	return resp
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		req, _ := http.NewRequest(http.MethodPost, baseURL+"/auth/validate-token", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func TestAccountsE2E_HTTPFlow(t *testing.T) {
	httpBase := os.Getenv("ACCOUNTS_HTTP_URL")
	if httpBase == "" {
		httpBase = defaultHTTPBase
	}

	if err := waitForHTTP(httpBase, 30*time.Second); err != nil {
		t.Fatalf("http not ready: %v", err)
	}

	client := newHTTPClient()

	email := fmt.Sprintf("e2e+%d@example.com", time.Now().UnixNano())
	password := "StrongPass1!"

	abort := false
	fail := func(t *testing.T, format string, args ...any) {
		abort = true
		t.Fatalf(format, args...)
	}

	step := func(name string, fn func(t *testing.T)) {
		t.Run(name, func(t *testing.T) {
			if abort {
				t.Skip("previous step failed")
			}
			fn(t)
		})
	}

	step("SignInBeforeSignUp", func(t *testing.T) {
		resp, _ := client.postJSON(t, "/auth/signin", map[string]string{
			"email":    email,
			"password": password,
		})
		if resp.StatusCode != http.StatusUnauthorized {
			fail(t, "expected signin before signup to fail, got %d", resp.StatusCode)
		}
	})

	step("SignUp", func(t *testing.T) {
		resp, body := client.postJSON(t, "/auth/signup", map[string]string{
			"name":     "E2E User",
			"email":    email,
			"password": password,
		})
		if resp.StatusCode != http.StatusCreated {
			fail(t, "signup status: %d body: %s", resp.StatusCode, string(body))
		}
	})

	step("SignUpWeakPassword", func(t *testing.T) {
		resp, _ := client.postJSON(t, "/auth/signup", map[string]string{
			"name":     "E2E User",
			"email":    "weak-" + email,
			"password": "short",
		})
		if resp.StatusCode != http.StatusBadRequest {
			fail(t, "expected weak password signup to fail, got %d", resp.StatusCode)
		}
	})

	step("SignUpDuplicate", func(t *testing.T) {
		resp, _ := client.postJSON(t, "/auth/signup", map[string]string{
			"name":     "E2E User",
			"email":    email,
			"password": password,
		})
		if resp.StatusCode != http.StatusConflict {
			fail(t, "expected duplicate signup conflict, got %d", resp.StatusCode)
		}
	})

	step("SignInBeforeVerification", func(t *testing.T) {
		resp, _ := client.postJSON(t, "/auth/signin", map[string]string{
			"email":    email,
			"password": password,
		})
		if resp.StatusCode != http.StatusForbidden {
			fail(t, "expected signin before verification to fail, got %d", resp.StatusCode)
		}
	})

	step("VerifyEmailWrongCode", func(t *testing.T) {
		resp, _ := client.postJSON(t, "/auth/verify-email", map[string]string{
			"email": email,
			"code":  "000000",
		})
		if resp.StatusCode != http.StatusBadRequest {
			fail(t, "expected wrong code to fail, got %d", resp.StatusCode)
		}
	})

	step("PasswordResetUnknownEmailLooksNormal", func(t *testing.T) {
		// Unknown addresses must be indistinguishable from known ones.
		resp, body := client.postJSON(t, "/auth/request-password-reset", map[string]string{
			"email": "nobody+" + email,
		})
		if resp.StatusCode != http.StatusOK {
			fail(t, "expected 200 for unknown email, got %d body: %s", resp.StatusCode, string(body))
		}
	})

	step("ValidateGarbageToken", func(t *testing.T) {
		resp, body := client.postJSON(t, "/auth/validate-token", map[string]string{
			"token": "garbage",
		})
		if resp.StatusCode != http.StatusOK {
			fail(t, "validate status: %d", resp.StatusCode)
		}
		var res struct {
			Valid bool `json:"valid"`
		}
		if err := json.Unmarshal(body, &res); err != nil {
			fail(t, "validate unmarshal failed: %v", err)
		}
		if res.Valid {
			fail(t, "garbage token must not validate")
		}
	})

	step("GuardRedirectsAnonymousDashboard", func(t *testing.T) {
		resp := client.get(t, "/dashboard")
		if resp.StatusCode != http.StatusTemporaryRedirect {
			fail(t, "expected redirect for anonymous dashboard, got %d", resp.StatusCode)
		}
		if loc := resp.Header.Get("Location"); loc != "/auth/signin" {
			fail(t, "expected redirect to signin, got %q", loc)
		}
	})

	step("GuardForbidsAnonymousAdminAPI", func(t *testing.T) {
		resp := client.get(t, "/api/admin/users")
		if resp.StatusCode != http.StatusForbidden {
			fail(t, "expected 403 for anonymous admin api, got %d", resp.StatusCode)
		}
	})

	step("ProtectedAPIWithoutSession", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPut, client.baseURL+"/api/user/update", bytes.NewReader([]byte(`{"name":"X Y"}`)))
		if err != nil {
			fail(t, "new request failed: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.client.Do(req)
		if err != nil {
			fail(t, "http request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			fail(t, "expected 401 without session, got %d", resp.StatusCode)
		}
	})

	step("ContactCooldown", func(t *testing.T) {
		payload := map[string]string{
			"name":    "E2E User",
			"email":   email,
			"subject": "Hello there",
			"message": "A message long enough to pass validation.",
		}
		resp, body := client.postJSON(t, "/api/contact", payload)
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
			fail(t, "contact status: %d body: %s", resp.StatusCode, string(body))
		}
		if resp.StatusCode == http.StatusOK {
			resp, _ = client.postJSON(t, "/api/contact", payload)
			if resp.StatusCode != http.StatusTooManyRequests {
				fail(t, "expected cooldown on second message, got %d", resp.StatusCode)
			}
		}
	})
}
