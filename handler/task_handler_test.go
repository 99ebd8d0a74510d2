package handler

import (
	"go-task-api/model"
	"go-task-api/service"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskFilter(t *testing.T) {
	q := url.Values{
		"status":    {"in-progress"},
		"priority":  {"high"},
		"search":    {"  report "},
		"page":      {"2"},
		"limit":     {"500"},
		"sortBy":    {"title"},
		"sortOrder": {"DESC"},
	}
	f, appErr := parseTaskFilter(q, "user-1")
	require.Nil(t, appErr)
	assert.Equal(t, model.TaskFilter{
		UserID:   "user-1",
		Status:   model.StatusInProgress,
		Priority: model.PriorityHigh,
		Search:   "report",
		Page:     2,
		Limit:    service.MaxTaskLimit,
		SortBy:   model.SortByTitle,
		SortDesc: true,
	}, f)

	f, appErr = parseTaskFilter(url.Values{"page": {"abc"}}, "user-1")
	require.Nil(t, appErr)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, service.DefaultTaskLimit, f.Limit)
	assert.Equal(t, model.SortByDueDate, f.SortBy)
	assert.False(t, f.SortDesc)

	_, appErr = parseTaskFilter(url.Values{"status": {"done"}}, "user-1")
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)

	_, appErr = parseTaskFilter(url.Values{"projectId": {"nope"}}, "user-1")
	require.NotNil(t, appErr)
	assert.Equal(t, "Invalid project ID", appErr.Message)
}

func TestParseTaskFilter_HugePageKeepsOffsetPositive(t *testing.T) {
	f, appErr := parseTaskFilter(url.Values{"page": {"9223372036854775807"}, "limit": {"100"}}, "user-1")
	require.Nil(t, appErr)
	assert.Equal(t, service.MaxTaskPage, f.Page)
	assert.GreaterOrEqual(t, f.Offset(), 0)
}
