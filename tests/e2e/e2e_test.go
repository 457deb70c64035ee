//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// End-to-end workflow tests against a running server.
//
// Test Execution:
//
//	CRUX_API_URL=http://127.0.0.1:8080 go test -tags e2e -v ./tests/e2e/...
//
// Prerequisites:
//
//	docker compose up -d
//	./crux migrate
//	CRUX_BOOTSTRAP_ADMIN_EMAIL must name an existing account that the
//	server promoted to super admin, with E2E_ADMIN_PASSWORD as password.

var (
	baseURL = getEnv("CRUX_API_URL", "http://127.0.0.1:8080")
	apiBase = baseURL + "/api/v1"

	adminEmail    = getEnv("E2E_ADMIN_EMAIL", "root@crux.local")
	adminPassword = getEnv("E2E_ADMIN_PASSWORD", "password123")
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// TestClient is an HTTP client with a cookie jar, so the session cookie
// set by login carries across calls.
type TestClient struct {
	httpClient *http.Client
}

func NewTestClient() *TestClient {
	jar, _ := cookiejar.New(nil)
	return &TestClient{
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		},
	}
}

func (c *TestClient) Do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestE2E_Workflows(t *testing.T) {
	// State shared between subtests
	var (
		e2eTenantID      string
		e2eOwnerEmail    string
		e2eOwnerPassword string
	)

	// 1. Super Admin Flow: sign in and provision a tenant with its owner
	t.Run("Super Admin Flow", func(t *testing.T) {
		client := NewTestClient()

		resp, err := client.Do("POST", apiBase+"/auth/login", map[string]string{
			"email":    adminEmail,
			"password": adminPassword,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		suffix := fmt.Sprintf("%d", time.Now().Unix())
		e2eOwnerEmail = "owner+" + suffix + "@e2e.local"
		e2eOwnerPassword = "owner_pass_123"

		resp, err = client.Do("POST", apiBase+"/tenants/", map[string]string{
			"name":               "E2E Test Business " + suffix,
			"domain":             "e2e-" + suffix + ".local",
			"plan":               "free",
			"owner_email":        e2eOwnerEmail,
			"owner_display_name": "E2E Owner",
			"owner_password":     e2eOwnerPassword,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var created struct {
			Tenant struct {
				ID string `json:"id"`
			} `json:"tenant"`
		}
		decode(t, resp, &created)
		require.NotEmpty(t, created.Tenant.ID)
		e2eTenantID = created.Tenant.ID

		t.Logf("Created tenant: %s", e2eTenantID)
	})

	// 2. Anonymous Review Flow: the public form needs no account
	t.Run("Public Review Flow", func(t *testing.T) {
		require.NotEmpty(t, e2eTenantID)
		client := NewTestClient()

		resp, err := client.Do("GET", baseURL+"/public/"+e2eTenantID+"/form", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp, err = client.Do("POST", baseURL+"/public/"+e2eTenantID+"/reviews", map[string]any{
			"customer_name": "E2E Customer",
			"rating":        5,
			"text":          "smooth checkout, friendly staff",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()

		// Out-of-range rating is rejected
		resp, err = client.Do("POST", baseURL+"/public/"+e2eTenantID+"/reviews", map[string]any{
			"customer_name": "E2E Customer",
			"rating":        0,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	// 3. Tenant Admin Flow: the owner manages reviews and settings
	t.Run("Tenant Admin Flow", func(t *testing.T) {
		require.NotEmpty(t, e2eTenantID)
		client := NewTestClient()

		resp, err := client.Do("POST", apiBase+"/auth/login", map[string]string{
			"email":    e2eOwnerEmail,
			"password": e2eOwnerPassword,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		// The public submission shows up on the dashboard
		resp, err = client.Do("GET", apiBase+"/reviews", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var listing struct {
			Reviews []struct {
				ID     string `json:"id"`
				Rating int    `json:"rating"`
			} `json:"reviews"`
		}
		decode(t, resp, &listing)
		require.NotEmpty(t, listing.Reviews)
		reviewID := listing.Reviews[0].ID

		// Flag and archive round trip
		resp, err = client.Do("POST", apiBase+"/reviews/"+reviewID+"/flag", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp, err = client.Do("POST", apiBase+"/reviews/"+reviewID+"/archive", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		// Usage reflects the submission
		resp, err = client.Do("GET", apiBase+"/usage", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var usage struct {
			Tier  string `json:"tier"`
			Count int    `json:"count"`
			Limit int    `json:"limit"`
		}
		decode(t, resp, &usage)
		assert.Equal(t, "free", usage.Tier)
		assert.GreaterOrEqual(t, usage.Count, 1)

		// Customize the public form
		resp, err = client.Do("PUT", apiBase+"/settings", map[string]string{
			"form_title":   "How did we do?",
			"form_message": "We read every review.",
			"accent_color": "#1f6feb",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		// The audit trail recorded the admin's actions
		resp, err = client.Do("GET", apiBase+"/audit", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	})

	// 4. Isolation: the owner cannot reach the master dashboard
	t.Run("Role Boundaries", func(t *testing.T) {
		require.NotEmpty(t, e2eTenantID)
		client := NewTestClient()

		resp, err := client.Do("POST", apiBase+"/auth/login", map[string]string{
			"email":    e2eOwnerEmail,
			"password": e2eOwnerPassword,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp, err = client.Do("GET", apiBase+"/tenants/", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		resp.Body.Close()
	})
}
