package derrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesChain(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "store unavailable")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestWrapNilIsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestHasCode(t *testing.T) {
	err := New(CodeDuplicateIdentity, "fingerprint already registered")

	assert.True(t, HasCode(err, CodeDuplicateIdentity))
	assert.False(t, HasCode(err, CodeIdentityNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeDuplicateIdentity))
	assert.False(t, HasCode(nil, CodeDuplicateIdentity))

	// Codes survive another layer of wrapping.
	outer := fmt.Errorf("handler: %w", err)
	assert.True(t, HasCode(outer, CodeDuplicateIdentity))
}

func TestCodeOfUntypedDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, "internal error", MessageOf(errors.New("boom")))
}

func TestIs(t *testing.T) {
	assert.True(t, Is(New(CodeValidation, "bad")))
	assert.True(t, Is(fmt.Errorf("outer: %w", New(CodeValidation, "bad"))))
	assert.False(t, Is(errors.New("plain")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeDuplicateIdentity:      http.StatusConflict,
		CodeIdentityNotFound:       http.StatusNotFound,
		CodeNotAuthorized:          http.StatusForbidden,
		CodeUnauthorized:           http.StatusUnauthorized,
		CodeFingerprintMismatch:    http.StatusUnprocessableEntity,
		CodeSelfPaymentNotAllowed:  http.StatusUnprocessableEntity,
		CodeBelowMinimum:           http.StatusUnprocessableEntity,
		CodeUnsupportedAsset:       http.StatusUnprocessableEntity,
		CodeInvalidSwapParameters:  http.StatusUnprocessableEntity,
		CodeInsufficientFeeBalance: http.StatusUnprocessableEntity,
		CodeFeeRateTooHigh:         http.StatusUnprocessableEntity,
		CodeValidation:             http.StatusBadRequest,
		CodeInternal:               http.StatusInternalServerError,
		Code("unknown"):            http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), "code %s", code)
	}
}
