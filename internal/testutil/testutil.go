// Package testutil wires an in-memory database and a fiber app for handler
// tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"grocery-tracker/internal/cache"
	"grocery-tracker/internal/database"
	"grocery-tracker/internal/middleware"
)

// SetupTestDB installs a fresh in-memory SQLite database as database.DB for
// the duration of the test. The dashboard cache is disabled.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	prev := database.DB
	db, err := database.OpenInMemory("test_" + strings.ReplaceAll(uuid.NewString(), "-", ""))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	database.DB = db
	cache.Use(nil)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		database.DB = prev
	})
	return db
}

// SetupApp returns a fiber app with the production error handler.
func SetupApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
}

// DoRequest sends body (JSON-encoded unless it is already a []byte) and
// returns the response with its body read.
func DoRequest(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	contentType := fiber.MIMEApplicationJSON
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return resp, raw
}

// DecodeJSON unmarshals raw into a value of type T.
func DecodeJSON[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("failed to decode %q: %v", string(raw), err)
	}
	return v
}
