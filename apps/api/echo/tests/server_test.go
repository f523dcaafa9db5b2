package tests

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/user"
)

func TestServer_health(t *testing.T) {
	env := setup(t)
	env.run(t, []httpTest{
		{
			name:     "health",
			method:   http.MethodGet,
			path:     "/health",
			wantCode: http.StatusOK,
			wantData: []byte(`{"ok": true, "service": "lms-api"}`),
		},
		{
			name:     "trailing slash",
			method:   http.MethodGet,
			path:     "/health/",
			wantCode: http.StatusOK,
		},
		{
			name:     "unknown route",
			method:   http.MethodGet,
			path:     "/api/unknown",
			wantCode: http.StatusNotFound,
		},
	})
}

func TestServer_metrics(t *testing.T) {
	env := setup(t)
	env.do(http.MethodGet, "/health", "")
	env.do(http.MethodGet, "/api/courses", "")

	rec := env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, `http_requests_total{code="200",method="GET",route="/health"} 1`)
	assert.Contains(t, body, `route="/api/courses"`)
	assert.True(t, strings.Contains(body, "http_request_duration_seconds_bucket"))
}

func TestServer_seb(t *testing.T) {
	env := setup(t)
	usr := env.createUser(t, "Student", "student@test.cd", "2024001", user.RoleStudent)
	token := env.token(t, usr)

	env.run(t, []httpTest{
		{
			name:     "info",
			method:   http.MethodGet,
			path:     "/api/seb",
			wantCode: http.StatusOK,
			wantData: []byte(`{"module": "seb"}`),
		},
		{
			name:     "check needs a token",
			method:   http.MethodPost,
			path:     "/api/seb/check",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "token header missing",
			method:   http.MethodPost,
			path:     "/api/seb/check",
			token:    token,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "SEB header missing"}),
		},
		{
			name:     "request hash missing",
			method:   http.MethodGet,
			path:     "/api/seb/check",
			token:    token,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "SEB request hash missing"}),
		},
	})

	tests := []struct {
		name   string
		method string
		header string
		value  string
	}{
		{name: "seb token", method: http.MethodPost, header: "X-SEB-Token", value: "abc"},
		{name: "request hash", method: http.MethodGet, header: "X-SafeExamBrowser-RequestHash", value: strings.Repeat("f", 64)},
		{name: "seb user agent", method: http.MethodGet, header: "User-Agent", value: "Mozilla/5.0 SafeExamBrowser/3.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, "/api/seb/check", token)
			req.Header.Set(tt.header, tt.value)
			env.server.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.JSONEq(t, `{"ok": true}`, rec.Body.String())
		})
	}
}
