package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"skillswap/internal/cache"
	"skillswap/internal/config"
	"skillswap/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestServer builds a full server on an in-memory SQLite database and a
// miniredis instance, with routes mounted on a bare Fiber app.
func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Skill{}, &models.SwapRequest{}))
	t.Cleanup(func() { _ = sqlDB.Close() })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	// Keep the package-level cache client out of cross-test state.
	cache.SetClient(nil)

	cfg := &config.Config{
		JWTSecret:       "test-secret-0123456789abcdef0123",
		JWTExpiresHours: 1,
		Env:             "test",
		FeatureFlags:    "featured_cache=on",
	}

	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app
}

// doJSON performs a request with an optional JSON body and bearer token.
func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// signup registers a user through the API and returns its token and ID.
func signup(t *testing.T, app *fiber.App, name, email string, extra map[string]any) (string, uint) {
	t.Helper()

	payload := map[string]any{
		"name":     name,
		"email":    email,
		"password": "password123",
	}
	for k, v := range extra {
		payload[k] = v
	}

	resp := doJSON(t, app, http.MethodPost, "/api/auth/signup", "", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	user, _ := body["user"].(map[string]any)
	require.NotNil(t, user)
	id, _ := user["id"].(float64)
	require.NotZero(t, id)
	return token, uint(id)
}

// swapPath builds a swap lifecycle URL.
func swapPath(id uint, action string) string {
	return fmt.Sprintf("/api/swaps/%d/%s", id, action)
}
