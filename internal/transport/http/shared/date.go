package shared

import "time"

// ParseDate accepts RFC3339 or YYYY-MM-DD and returns the UTC calendar
// date at midnight.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		parsed, err = time.Parse("2006-01-02", value)
		if err != nil {
			return time.Time{}, err
		}
	}
	y, m, d := parsed.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// OptionalDate parses a nullable date field. Empty input yields nil.
func OptionalDate(v *Validator, field string, raw *string) *time.Time {
	if raw == nil || *raw == "" {
		return nil
	}
	parsed, ok := v.Date(field, *raw)
	if !ok {
		return nil
	}
	return &parsed
}
