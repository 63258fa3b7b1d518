package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/sakif/movieku/internal/apperror"
	"github.com/sakif/movieku/internal/model"
)

// parsePositive reads an optional query parameter that must be an integer
// ≥ 1. Empty means def.
func parsePositive(field, raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperror.ValidationFailed(field, field+" must be a positive integer")
	}
	return n, nil
}

// parseExternalID reads a provider id from a path segment.
func parseExternalID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 1 {
		return 0, apperror.ValidationFailed("externalId", "externalId must be a positive integer")
	}
	return id, nil
}

// timestampLayouts are tried in order. The date-only and minute-precision
// forms are what HTML date and datetime-local inputs submit.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseBound turns an availability bound into a time. Absent, null and ""
// all mean "no bound".
func parseBound(field string, v model.Optional[string]) (*time.Time, error) {
	if !v.Set || v.Null {
		return nil, nil
	}
	raw := strings.TrimSpace(v.Value)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperror.ValidationFailed(field, field+" must be an RFC 3339 timestamp or YYYY-MM-DD date")
}

// checkWindow rejects an availability window that ends before it starts.
func checkWindow(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return apperror.ValidationFailed("availabilityEnd", "availabilityEnd must not be before availabilityStart")
	}
	return nil
}
