package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type window struct {
	Start string `json:"start" validate:"required,datetime=2006-01-02"`
	End   string `json:"end" validate:"required,datetime=2006-01-02,date_gtefield=Start"`
	TopK  int    `json:"top_k" default:"5" validate:"gte=1,lte=50"`
	Years []int  `json:"years" validate:"omitempty,max=2"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		req   window
		field string
		code  string
	}{
		{"ok", window{Start: "2020-01-01", End: "2020-01-01", TopK: 1}, "", ""},
		{"missing start", window{End: "2020-01-01", TopK: 1}, "start", "ERR_REQUIRED"},
		{"bad layout", window{Start: "2020/01/01", End: "2020-01-02", TopK: 1}, "start", "ERR_DATETIME"},
		{"end before start", window{Start: "2020-02-01", End: "2020-01-01", TopK: 1}, "end", "ERR_DATE_GTEFIELD"},
		{"top_k", window{Start: "2020-01-01", End: "2020-01-02", TopK: 90}, "top_k", "ERR_LTE"},
		{"too many years", window{Start: "2020-01-01", End: "2020-01-02", TopK: 1, Years: []int{1, 2, 3}}, "years", "ERR_MAX"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(&tt.req)
			if tt.code == "" {
				assert.Nil(t, got)
				return
			}
			errs, ok := got.([]ValidationError)
			require.True(t, ok)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.NotEmpty(t, errs[0].Message)
		})
	}
}

func TestReadAndValidateRequestAppliesDefaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"start":"2020-01-01","end":"2020-03-01"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	var w window
	assert.Nil(t, ReadAndValidateRequest(c, &w))
	assert.Equal(t, 5, w.TopK)
}

func TestReadAndValidateRequestBadJSON(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"start":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	var w window
	errs, ok := ReadAndValidateRequest(c, &w).([]ValidationError)
	require.True(t, ok)
	assert.Equal(t, "ERR_UNKNOWN", errs[0].Code)
}
