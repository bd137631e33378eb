package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"couplecoach/backend/go/internal/memory/service"
	"couplecoach/backend/go/internal/memory/store/storetest"
	"couplecoach/backend/go/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var baseTime = time.Date(2026, 3, 20, 18, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(st *storetest.Store, jwtSecret string, health HealthChecker) *gin.Engine {
	h := NewHandler(
		service.NewContextService(st, nil, time.UTC),
		service.NewEraseService(st, nil, nil),
		health,
	)
	r, err := SetupRouter(h, nil, jwtSecret, nil)
	if err != nil {
		panic(err)
	}
	return r
}

func doRequest(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func signedToken(t *testing.T, secret, subject string) string {
	return signedRoleToken(t, secret, subject, "")
}

func signedRoleToken(t *testing.T, secret, subject, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + token
}

func analyzedSessions(userID string, n int) []models.SessionRecord {
	records := make([]models.SessionRecord, 0, n)
	for i := 0; i < n; i++ {
		analysis := fmt.Sprintf("analysis %02d", i)
		records = append(records, models.SessionRecord{
			ID:        fmt.Sprintf("s%02d", i),
			Type:      models.SessionSolo,
			UserID:    userID,
			Analysis:  &analysis,
			CreatedAt: baseTime.Add(-time.Duration(i) * 24 * time.Hour),
		})
	}
	return records
}

func seededStore() *storetest.Store {
	st := storetest.New()
	coupleID := "couple-1"
	st.AddUser(models.NewUser("user-1", &coupleID))
	st.AddUser(models.NewUser("user-3", nil))
	st.AddCouple(models.NewCouple("couple-1"))
	return st
}

func TestBuildContextEndpoint(t *testing.T) {
	t.Run("missing user id", func(t *testing.T) {
		rec := doRequest(newRouter(storetest.New(), "", nil), http.MethodPost, "/api/v1/memory/context", `{"coupleId":"couple-1"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"User ID required"}`, rec.Body.String())
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := doRequest(newRouter(storetest.New(), "", nil), http.MethodPost, "/api/v1/memory/context", `{"userId":`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid request body"}`, rec.Body.String())
	})

	t.Run("no sessions omits loadedCount", func(t *testing.T) {
		rec := doRequest(newRouter(storetest.New(), "", nil), http.MethodPost, "/api/v1/memory/context", `{"userId":"user-1"}`, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"context":"","sessionCount":0}`, rec.Body.String())
	})

	t.Run("truncates to the newest sessions", func(t *testing.T) {
		st := storetest.New()
		st.AddSessions(analyzedSessions("user-1", 25)...)

		rec := doRequest(newRouter(st, "", nil), http.MethodPost, "/api/v1/memory/context", `{"userId":"user-1"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ContextResponse
		require.NoError(t, jsonUnmarshal(rec, &resp))
		assert.Equal(t, 25, resp.SessionCount)
		require.NotNil(t, resp.LoadedCount)
		assert.Equal(t, 20, *resp.LoadedCount)
		assert.Contains(t, resp.Context, "analysis 00")
		assert.Contains(t, resp.Context, "analysis 19")
		assert.NotContains(t, resp.Context, "analysis 20")
	})

	t.Run("store failure degrades to empty", func(t *testing.T) {
		st := storetest.New()
		st.AddSessions(analyzedSessions("user-1", 3)...)
		st.FailOn(storetest.OpListUserSessions, errors.New("connection refused"))

		rec := doRequest(newRouter(st, "", nil), http.MethodPost, "/api/v1/memory/context", `{"userId":"user-1"}`, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"context":"","sessionCount":0}`, rec.Body.String())
	})
}

func TestEraseMemoryEndpoint(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		wantCode int
		wantBody string
	}{
		{"personal", `{"userId":"user-1","deleteType":"personal"}`, http.StatusOK, `{"success":true,"deleted":"personal_context"}`},
		{"shared", `{"userId":"user-1","deleteType":"shared"}`, http.StatusOK, `{"success":true,"deleted":"shared_context"}`},
		{"shared without couple", `{"userId":"user-3","deleteType":"shared"}`, http.StatusOK, `{"success":true,"deleted":"shared_context"}`},
		{"all", `{"userId":"user-1","deleteType":"all"}`, http.StatusOK, `{"success":true,"deleted":"all","consentRevoked":true}`},
		{"missing user id", `{"deleteType":"all"}`, http.StatusBadRequest, `{"error":"userId required"}`},
		{"invalid scope", `{"userId":"user-1","deleteType":"bogus"}`, http.StatusBadRequest, `{"error":"Invalid deleteType"}`},
		{"missing scope", `{"userId":"user-1"}`, http.StatusBadRequest, `{"error":"Invalid deleteType"}`},
		{"malformed body", `not json`, http.StatusBadRequest, `{"error":"Invalid request body"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := seededStore()
			rec := doRequest(newRouter(st, "", nil), http.MethodPost, "/api/v1/memory/erase", tc.body, nil)
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.JSONEq(t, tc.wantBody, rec.Body.String())
			if tc.wantCode != http.StatusOK {
				assert.Empty(t, st.Writes())
			}
		})
	}
}

func TestEraseMemoryEndpointStoreFailure(t *testing.T) {
	st := seededStore()
	st.FailOn(storetest.OpRevokeConsent, errors.New("Lock wait timeout exceeded"))

	rec := doRequest(newRouter(st, "", nil), http.MethodPost, "/api/v1/memory/erase", `{"userId":"user-1","deleteType":"all"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Lock wait timeout exceeded"}`, rec.Body.String())
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(seededStore(), testSecret, nil)
	body := `{"userId":"user-1","deleteType":"personal"}`

	cases := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic dXNlcjpwdw==", http.StatusUnauthorized},
		{"wrong secret", signedToken(t, "other-secret", "user-1"), http.StatusUnauthorized},
		{"other user", signedToken(t, testSecret, "user-2"), http.StatusForbidden},
		{"other user with unknown role", signedRoleToken(t, testSecret, "user-2", "admin"), http.StatusForbidden},
		{"same user", signedToken(t, testSecret, "user-1"), http.StatusOK},
		{"operator for another user", signedRoleToken(t, testSecret, "support-7", RoleOperator), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			headers := map[string]string{}
			if tc.header != "" {
				headers["Authorization"] = tc.header
			}
			rec := doRequest(r, http.MethodPost, "/api/v1/memory/erase", body, headers)
			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}

	rec := doRequest(r, http.MethodPost, "/api/v1/memory/context", `{"userId":"user-1"}`,
		map[string]string{"Authorization": signedToken(t, testSecret, "user-2")})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Forbidden"}`, rec.Body.String())

	rec = doRequest(r, http.MethodPost, "/api/v1/memory/context", `{"userId":"user-1"}`,
		map[string]string{"Authorization": signedRoleToken(t, testSecret, "support-7", RoleOperator)})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health is not authenticated")
}

func TestHealth(t *testing.T) {
	rec := doRequest(newRouter(storetest.New(), "", func(context.Context) error { return nil }), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = doRequest(newRouter(storetest.New(), "", func(context.Context) error { return errors.New("ping failed") }), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestID(t *testing.T) {
	r := newRouter(storetest.New(), "", nil)

	rec := doRequest(r, http.MethodGet, "/healthz", "", map[string]string{HeaderRequestID: "trace-123"})
	assert.Equal(t, "trace-123", rec.Header().Get(HeaderRequestID))

	rec = doRequest(r, http.MethodGet, "/healthz", "", nil)
	_, err := uuid.Parse(rec.Header().Get(HeaderRequestID))
	assert.NoError(t, err)
}

func jsonUnmarshal(rec *httptest.ResponseRecorder, v interface{}) error {
	return json.Unmarshal(rec.Body.Bytes(), v)
}
