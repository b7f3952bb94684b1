package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func fieldError(message, key string, extra map[string]any) error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
}

// ParseQueryInt reads key as an int in [min, max], returning defaultVal when absent.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fieldError("query parameter must be numeric", key, nil)
	}
	if value < min || value > max {
		return 0, fieldError("query parameter out of range", key, map[string]any{"min": min, "max": max})
	}
	return value, nil
}

// ParseQueryCents reads an optional non-negative amount in cents.
func ParseQueryCents(r *http.Request, key string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return nil, fieldError("query parameter must be a non-negative integer", key, nil)
	}
	return &value, nil
}
