package shared

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-09")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-09T00:00:00Z", d.Format("2006-01-02T15:04:05Z07:00"))

	d, err = ParseDate("2026-03-09T23:30:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", d.Format("2006-01-02"))

	_, err = ParseDate("09/03/2026")
	assert.Error(t, err)

	d, err = ParseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())
}

func TestValidatorCollectsSortedIssues(t *testing.T) {
	v := NewValidator()
	v.Required("title", " ", "is required")
	v.Enum("priority", "urgent", []string{"low", "medium"}, "is not a known priority")
	bad := 9
	v.Range("overallRating", &bad, 1, 5)
	start, _ := v.Date("startDate", "2026-05-01")
	end, _ := v.Date("targetDate", "2026-04-01")
	v.DateOrder("startDate", start, "targetDate", end)

	require.True(t, v.HasIssues())
	issues := v.Issues()
	fields := make([]string, 0, len(issues))
	for _, issue := range issues {
		fields = append(fields, issue.Field)
	}
	assert.Equal(t, []string{"overallRating", "priority", "startDate", "targetDate", "title"}, fields)

	rec := httptest.NewRecorder()
	assert.True(t, v.Reject(rec, "req-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"VALIDATION"`)
}

func TestOptionalDate(t *testing.T) {
	v := NewValidator()
	assert.Nil(t, OptionalDate(v, "d", nil))
	raw := "2026-02-28"
	got := OptionalDate(v, "d", &raw)
	require.NotNil(t, got)
	assert.Equal(t, 28, got.Day())

	junk := "tomorrow"
	assert.Nil(t, OptionalDate(v, "d", &junk))
	assert.True(t, v.HasIssues())
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Title string `json:"title"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x"}`))
	assert.True(t, DecodeJSON(httptest.NewRecorder(), req, &dst, false, ""))
	assert.Equal(t, "x", dst.Title)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unknown":1}`))
	rec := httptest.NewRecorder()
	assert.False(t, DecodeJSON(rec, req, &dst, false, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.True(t, DecodeJSON(httptest.NewRecorder(), req, &dst, true, ""))
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.False(t, DecodeJSON(httptest.NewRecorder(), req, &dst, false, ""))
}

func TestPagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&offset=20", nil)
	p := ParsePagination(req, 50, 200)
	assert.Equal(t, Pagination{Limit: 200, Offset: 20}, p)

	page := NewPage[string](nil, 0, p)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 200, page.Limit)
}
