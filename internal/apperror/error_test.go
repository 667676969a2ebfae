package apperror

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodePoolNotFound, http.StatusNotFound},
		{CodeInvalidOrder, http.StatusBadRequest},
		{CodeSlippageExceeded, http.StatusUnprocessableEntity},
		{CodeBinanceConnectionFailed, http.StatusServiceUnavailable},
		{CodeServiceTimeout, http.StatusServiceUnavailable},
		{CodeBinanceRateLimited, http.StatusTooManyRequests},
		{CodeRateLimitExceeded, http.StatusTooManyRequests},
		{CodeExternalServiceError, http.StatusBadGateway},
		{CodeRiskStoreFailed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code).StatusCode; got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAppError_Error(t *testing.T) {
	err := New(CodeChainNotFound, WithContext("chain=near"), WithCause(errors.New("missing")))
	want := "CHAIN_NOT_FOUND: Chain not found (chain=near): missing"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if got := err.Public(); strings.Contains(got, "missing") {
		t.Errorf("Public() leaked the cause: %q", got)
	}

	bare := New(Code("SOMETHING_ODD"))
	if bare.Message != "something odd" {
		t.Errorf("fallback message = %q", bare.Message)
	}
}

func TestWrapAndHTTPStatus(t *testing.T) {
	base := errors.New("disk full")
	wrapped := Wrap(base, CodeRiskStoreFailed, "insert pnl")

	if !errors.Is(wrapped, base) {
		t.Error("wrapped error lost its cause")
	}
	if !errors.Is(wrapped, New(CodeRiskStoreFailed)) {
		t.Error("errors.Is should match by code")
	}
	if GetCode(fmt.Errorf("outer: %w", wrapped)) != CodeRiskStoreFailed {
		t.Error("GetCode did not see through fmt wrapping")
	}
	if HTTPStatus(NotFound(CodeChainNotFound, "chain=near")) != http.StatusNotFound {
		t.Error("NotFound status not propagated")
	}
	if HTTPStatus(base) != http.StatusInternalServerError {
		t.Error("plain errors should map to 500")
	}
	if Wrap(nil, CodeInternalError, "") != nil {
		t.Error("Wrap(nil) should be a nil error")
	}

	inner := Validation(CodeInvalidOrder, "")
	outer := fmt.Errorf("place: %w", inner)
	if Wrap(outer, CodeInternalError, "order 7") != outer {
		t.Error("Wrap should keep an existing AppError chain")
	}
	if inner.Context != "order 7" {
		t.Errorf("context = %q, want it filled in", inner.Context)
	}
}

func TestAppError_LogValue(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	log.Info("failed", "error", External(CodeKrakenAPIError, "ticker", errors.New("502")))

	out := buf.String()
	for _, want := range []string{"error.code=KRAKEN_API_ERROR", "error.context=ticker", "error.cause=502", "error_test.go:"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}
}

func TestMessagesCoverCodes(t *testing.T) {
	for _, code := range []Code{
		CodeMEVRuleNotFound, CodeFlashLoanProviderNotFound, CodeBridgeRouteNotFound,
		CodePositionNotFound, CodeInvalidSubscription, CodeInvalidMint,
	} {
		if _, ok := messages[code]; !ok {
			t.Errorf("no message for %s", code)
		}
	}
}
