package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Is(t *testing.T) {
	err := ErrClientRejected.WithStatus(400).WithDetails("bad title")
	if !errors.Is(err, ErrClientRejected) {
		t.Error("copy should match its sentinel")
	}
	if errors.Is(err, ErrTransient) {
		t.Error("different codes must not match")
	}

	wrapped := fmt.Errorf("solve: %w", err)
	var de *DomainError
	if !errors.As(wrapped, &de) || de.Code != "RC-REQ-4000" {
		t.Errorf("errors.As(wrapped) = %+v", de)
	}
	if KindOf(wrapped) != KindClientRejected {
		t.Errorf("KindOf(wrapped) = %v", KindOf(wrapped))
	}
}

func TestDomainError_Error(t *testing.T) {
	if got := ErrNotLoggedIn.Error(); got != "[RC-AUTH-4012] not logged in" {
		t.Errorf("Error() = %q", got)
	}
	if got := ErrInvalidArgument.WithDetails("x").Error(); got != "[RC-ARG-1001] invalid argument: x" {
		t.Errorf("Error() = %q", got)
	}
	if ErrInvalidArgument.Details != "" {
		t.Error("WithDetails must not modify the sentinel")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{ErrClientRejected.WithStatus(422), KindClientRejected},
		{ErrSessionExpired, KindSessionExpired},
		{ErrSessionExpired.WithCause(ErrRefreshDenied), KindSessionExpired},
		{ErrRefreshDenied, KindRefreshDenied},
		{ErrTransient, KindTransient},
		{ErrRetriesExhausted.WithCause(ErrTransient), KindRetriesExhausted},
		{ErrBridgeTimeout, KindChannelUnavailable},
		{ErrMissingArgument, KindValidation},
		{errors.New("boom"), KindOther},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestCauseOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Cause
	}{
		{"expired", ErrSessionExpired, CauseAuth},
		{"not logged in", ErrNotLoggedIn, CauseAuth},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), CauseTimeout},
		{"bridge timeout", ErrBridgeTimeout, CauseTimeout},
		{"404", ErrClientRejected.WithStatus(404), CauseNotFound},
		{"5xx", ErrRetriesExhausted.WithCause(ErrTransient.WithStatus(503)), CauseServer},
		{"refused", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), CauseNetwork},
		{"bridge down", ErrChannelUnavailable, CauseNetwork},
		{"other", errors.New("boom"), CauseUnknown},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := CauseOf(tt.err); got != tt.want {
				t.Errorf("CauseOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rejection detail", ErrClientRejected.WithStatus(400).WithDetails("Email already registered"), "Email already registered"},
		{"rejection without detail", ErrClientRejected.WithStatus(400), "request rejected"},
		{"404 uses cause", ErrClientRejected.WithStatus(404).WithDetails("Not Found"), causeMessages[CauseNotFound]},
		{"validation", ErrInvalidArgument.WithDetails("Passwords do not match"), "Passwords do not match"},
		{"expired", ErrSessionExpired, causeMessages[CauseAuth]},
		{"server", ErrRetriesExhausted.WithCause(ErrTransient.WithStatus(500)), causeMessages[CauseServer]},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCauseMessage_Unknown(t *testing.T) {
	if CauseMessage("bogus") != causeMessages[CauseUnknown] {
		t.Error("unknown cause should fall back")
	}
}
