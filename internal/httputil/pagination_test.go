package httputil_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/sentinel/internal/httputil"
)

func TestParsePagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		url      string
		expected httputil.Page
		errorMsg string
	}{
		{
			name:     "defaults for the audit log listing",
			url:      "/v1/audit-logs",
			expected: httputil.Page{Offset: 0, Limit: httputil.DefaultPageLimit},
		},
		{
			name:     "second page of entries",
			url:      "/v1/audit-logs?offset=20&limit=20",
			expected: httputil.Page{Offset: 20, Limit: 20},
		},
		{
			name:     "max limit",
			url:      "/v1/audit-logs?limit=100",
			expected: httputil.Page{Offset: 0, Limit: httputil.MaxPageLimit},
		},
		{
			name:     "negative offset",
			url:      "/v1/audit-logs?offset=-1",
			errorMsg: "Offset: must be no less than 0.",
		},
		{
			name:     "offset is a sequence label",
			url:      "/v1/audit-logs?offset=seq-7",
			errorMsg: "offset: must be an integer",
		},
		{
			name:     "zero limit",
			url:      "/v1/audit-logs?limit=0",
			errorMsg: "Limit: cannot be blank.",
		},
		{
			name:     "limit above max",
			url:      "/v1/audit-logs?limit=1000",
			errorMsg: "Limit: must be no greater than 100.",
		},
		{
			name:     "limit not an integer",
			url:      "/v1/audit-logs?limit=all",
			errorMsg: "limit: must be an integer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, tt.url, nil)

			page, err := httputil.ParsePagination(c)

			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Equal(t, tt.errorMsg, err.Error())
				assert.Equal(t, httputil.Page{}, page)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, page)
		})
	}
}
