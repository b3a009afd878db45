package types

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrUnauthorized", ErrUnauthorized},
		{"ErrForbidden", ErrForbidden},
		{"ErrNotFound", ErrNotFound},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrServer", ErrServer},
		{"ErrMissingLocation", ErrMissingLocation},
		{"ErrMissingRefreshToken", ErrMissingRefreshToken},
		{"ErrMissingClientConfig", ErrMissingClientConfig},
		{"ErrMissingCredential", ErrMissingCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Errorf("expected error, got nil")
			}
			if tt.err.Error() == "" {
				t.Errorf("expected non-empty error message")
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	t.Run("Status Sentinels", func(t *testing.T) {
		tests := []struct {
			status int
			target error
		}{
			{401, ErrUnauthorized},
			{403, ErrForbidden},
			{404, ErrNotFound},
			{429, ErrRateLimited},
			{500, ErrServer},
			{503, ErrServer},
		}

		for _, tt := range tests {
			err := fmt.Errorf("wrapped: %w", &TransportError{Method: "GET", Path: "/contacts/1", StatusCode: tt.status})
			if !errors.Is(err, tt.target) {
				t.Errorf("status %d should match %v", tt.status, tt.target)
			}
		}

		err := &TransportError{StatusCode: 400}
		if errors.Is(err, ErrServer) || errors.Is(err, ErrUnauthorized) {
			t.Errorf("status 400 should not match status sentinels")
		}
	})

	t.Run("Error Message", func(t *testing.T) {
		err := &TransportError{Method: "GET", Path: "/users/1", StatusCode: 404}
		if got := err.Error(); got != "crm: GET /users/1: status 404: Not Found" {
			t.Errorf("unexpected message %q", got)
		}

		err = &TransportError{Method: "POST", Path: "/contacts/", StatusCode: 422, Message: "email is invalid"}
		if got := err.Error(); got != "crm: POST /contacts/: status 422: email is invalid" {
			t.Errorf("unexpected message %q", got)
		}

		cause := errors.New("connection refused")
		err = &TransportError{Method: "GET", Path: "/users/", Err: cause}
		if !errors.Is(err, cause) {
			t.Errorf("expected network error to unwrap to cause")
		}
		if got := err.Error(); got != "crm: GET /users/: connection refused" {
			t.Errorf("unexpected message %q", got)
		}
	})
}

func TestRetryHelpers(t *testing.T) {
	err := fmt.Errorf("call failed: %w", &TransportError{
		StatusCode: 429,
		Retryable:  true,
		RetryAfter: 2 * time.Second,
	})

	if !IsRetryable(err) {
		t.Errorf("expected wrapped transport error to be retryable")
	}
	if got := GetRetryDelay(err); got != 2*time.Second {
		t.Errorf("expected retry delay 2s, got %v", got)
	}
	if got := StatusCode(err); got != 429 {
		t.Errorf("expected status 429, got %d", got)
	}

	plain := errors.New("plain")
	if IsRetryable(plain) {
		t.Errorf("plain errors are never retryable")
	}
	if GetRetryDelay(plain) != 0 || StatusCode(plain) != 0 {
		t.Errorf("plain errors carry no retry delay or status")
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Violations: []Violation{
		{Path: "email", Message: "must be a valid email address", Value: "nope"},
		{Message: "body is required"},
	}}

	want := "crm: validation failed: email: must be a valid email address; body is required"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError("location_id", ErrMissingLocation)

	if !errors.Is(err, ErrMissingLocation) {
		t.Errorf("expected configuration error to unwrap to ErrMissingLocation")
	}
	if err.Error() != "crm: configuration location_id: location id is required" {
		t.Errorf("unexpected message %q", err.Error())
	}

	var configErr *ConfigurationError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &configErr) {
		t.Fatalf("expected errors.As to find ConfigurationError")
	}
	if configErr.Field != "location_id" {
		t.Errorf("expected field location_id, got %q", configErr.Field)
	}
}

func TestRefreshError(t *testing.T) {
	cause := errors.New("invalid_grant")
	err := &RefreshError{StatusCode: 400, Err: cause}

	if !errors.Is(err, cause) {
		t.Errorf("expected refresh error to unwrap to cause")
	}
	if err.Error() != "crm: token refresh failed: status 400: invalid_grant" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
