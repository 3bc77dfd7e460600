package autherrors_test

import (
	"net/http"
	"testing"

	"github.com/inkwell-cms/auth-service/internal/autherrors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	require.Equal(t, autherrors.CodeTokenDenied, autherrors.CodeOf(autherrors.New(autherrors.CodeTokenDenied)))

	// Wrapped and re-wrapped chains still resolve.
	wrapped := errors.Wrap(autherrors.Wrap(autherrors.CodeTokenExpired, errors.New("db timeout")), "outer")
	require.Equal(t, autherrors.CodeTokenExpired, autherrors.CodeOf(wrapped))

	// Anything outside the taxonomy collapses to UnknownError.
	require.Equal(t, autherrors.CodeUnknownError, autherrors.CodeOf(errors.New("plain")))
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		code   autherrors.Code
		status int
	}{
		{autherrors.CodeAuthError, http.StatusUnauthorized},
		{autherrors.CodeEmailVerification, http.StatusForbidden},
		{autherrors.CodeAccountSuspended, http.StatusForbidden},
		{autherrors.CodeAccountInactive, http.StatusForbidden},
		{autherrors.CodeInvalidType, http.StatusBadRequest},
		{autherrors.CodeTokenDenied, http.StatusUnauthorized},
		{autherrors.CodeInvalidToken, http.StatusUnauthorized},
		{autherrors.CodeTokenExpired, http.StatusUnauthorized},
		{autherrors.CodeRateLimited, http.StatusTooManyRequests},
		{autherrors.CodeForbidden, http.StatusForbidden},
		{autherrors.CodeUnknownError, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		require.Equal(t, tc.status, autherrors.StatusOf(autherrors.New(tc.code)), string(tc.code))
	}
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := autherrors.Wrap(autherrors.CodeTokenDenied, errors.New("fingerprint mismatch"))

	require.ErrorIs(t, err, autherrors.New(autherrors.CodeTokenDenied))
	require.NotErrorIs(t, err, autherrors.New(autherrors.CodeTokenExpired))
}

func TestWrapKeepsCauseOutOfMessage(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := autherrors.Wrap(autherrors.CodeUnknownError, cause)

	require.ErrorIs(t, err, cause)
	// The canonical message shown to clients never contains the cause.
	require.Equal(t, "internal error", autherrors.New(autherrors.CodeUnknownError).Message)
}
