package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/auth"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/handler/http/middleware"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/handler/http/response"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// identityFrom returns the caller set by middleware.AuthRequired. It writes a
// 401 and returns false when the request carries no identity.
func identityFrom(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := middleware.Identity(r.Context())
	if !ok || identity.UserID == "" {
		response.Unauthorized(w, "Unauthorized")
		return auth.Identity{}, false
	}
	return identity, true
}

// decodeJSON decodes the request body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// getIntQueryParam gets an int query parameter with a default value
func getIntQueryParam(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

// getBoolQueryParam gets a bool query parameter with a default value
func getBoolQueryParam(r *http.Request, key string, defaultVal bool) bool {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1"
}

// getStringQueryParam returns nil when the parameter is absent.
func getStringQueryParam(r *http.Request, key string) *string {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil
	}
	return &val
}

// getTimeQueryParam accepts RFC 3339 timestamps or YYYY-MM-DD dates.
// The bool result is false when the value is present but malformed.
func getTimeQueryParam(r *http.Request, key string) (*time.Time, bool) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return &t, true
	}
	if t, err := time.Parse("2006-01-02", val); err == nil {
		return &t, true
	}
	return nil, false
}

// meta builds pagination metadata.
func meta(page, pageSize int, total int64) *response.Meta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &response.Meta{
		Page:       page,
		Limit:      pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}
}
