package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("bad body: %w", models.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("lookup: %w", models.ErrNotFound), http.StatusNotFound},
		{models.ErrPreconditionFailed, http.StatusBadRequest},
		{models.ErrInvalidTransition, http.StatusConflict},
		{models.ErrUnauthorized, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ErrorStatus(tc.err), tc.err.Error())
	}
}

func TestBearerToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer abc")
	token, ok := BearerToken(e.NewContext(req, httptest.NewRecorder()))
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Basic abc")
	_, ok = BearerToken(e.NewContext(req, httptest.NewRecorder()))
	assert.False(t, ok)
}

func TestWorkerTokenRoundTrip(t *testing.T) {
	token, err := GenerateWorkerToken("gpu-1", "k", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateWorkerToken(token, "k")
	require.NoError(t, err)
	assert.Equal(t, "gpu-1", claims.Worker)

	_, err = ValidateWorkerToken(token, "other")
	assert.Error(t, err)
}

func TestValidateStructHTTPURL(t *testing.T) {
	type in struct {
		URL string `validate:"required,httpurl"`
	}
	assert.NoError(t, ValidateStruct(context.Background(), &in{URL: "https://example.com/video123"}))
	assert.ErrorIs(t, ValidateStruct(context.Background(), &in{URL: "ftp://example.com/a"}), models.ErrValidation)
	assert.ErrorIs(t, ValidateStruct(context.Background(), &in{URL: ""}), models.ErrValidation)
}

func TestPagination(t *testing.T) {
	p := &Pagination{}
	require.NoError(t, p.SetPage("3"))
	require.NoError(t, p.SetSize("20"))
	assert.Equal(t, 40, p.GetOffset())
	assert.Equal(t, 20, p.GetLimit())

	require.NoError(t, p.SetSize("1000"))
	assert.Equal(t, defaultSize, p.GetSize())
	assert.Error(t, p.SetPage("x"))

	assert.Equal(t, 3, GetTotalPages(25, 10))
	assert.True(t, GetHasMore(1, 25, 10))
	assert.False(t, GetHasMore(3, 25, 10))
}

func TestCheckCPUUsage(t *testing.T) {
	orig := cpuPercent
	t.Cleanup(func() { cpuPercent = orig })

	cpuPercent = func(time.Duration, bool) ([]float64, error) { return []float64{42}, nil }
	ok, usage := CheckCPUUsage(80)
	assert.True(t, ok)
	assert.Equal(t, 42.0, usage)

	cpuPercent = func(time.Duration, bool) ([]float64, error) { return nil, errors.New("no proc") }
	ok, _ = CheckCPUUsage(80)
	assert.False(t, ok)
}
