package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingColumns(t *testing.T) {
	err := MissingColumns("outages", "torre_oc", "ft")

	assert.Equal(t, ErrCodeSchemaMismatch, err.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, err.StatusCode)
	assert.Contains(t, err.Error(), "torre_oc")
	assert.Equal(t, "outages", err.Details["dataset"])
	assert.Equal(t, []string{"torre_oc", "ft"}, err.Details["missing"])
}

func TestGetAppError_ThroughWrapping(t *testing.T) {
	base := MissingSheet("LT SMSB C3")
	wrapped := fmt.Errorf("locate: %w", base)

	appErr, ok := GetAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeMissingSheet, appErr.Code)
	assert.True(t, HasCode(wrapped, ErrCodeMissingSheet))
	assert.False(t, HasCode(wrapped, ErrCodeNoTowerFound))
	assert.False(t, IsAppError(fmt.Errorf("plain")))
}

func TestWrap_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := LLMRequestFailed(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "LLM_REQUEST_FAILED: LLM request failed - connection refused", err.Error())
}
