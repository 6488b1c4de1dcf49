package scrapeerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Wrap(KindNavigation, "loading page", cause)

	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find the wrapped cause")
	}
	if got := err.Error(); got == "" {
		t.Errorf("expected non-empty error string")
	}
}

func TestAsFindsScrapeErrorThroughPlainWrap(t *testing.T) {
	inner := New(KindExtraction, "failed to extract body")
	outer := fmt.Errorf("scraping %s: %w", "https://x.example", inner)

	se, ok := As(outer)
	if !ok {
		t.Fatal("expected As to find the wrapped ScrapeError")
	}
	if se.Kind != KindExtraction {
		t.Errorf("expected KindExtraction, got %s", se.Kind)
	}
}

func TestAsReturnsFalseForPlainError(t *testing.T) {
	if _, ok := As(errors.New("plain")); ok {
		t.Error("expected As to return false for a non-ScrapeError")
	}
}

func TestKindOfDefaultsToInternalForPlainErrors(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Errorf("expected KindInternal for a plain error, got %s", got)
	}
	if got := KindOf(nil); got != "" {
		t.Errorf("expected empty Kind for nil error, got %s", got)
	}
}

func TestRetryablePolicy(t *testing.T) {
	retryable := []Kind{KindNavigation, KindBrowserError, KindExtraction}
	for _, k := range retryable {
		if !Retryable(k) {
			t.Errorf("expected %s to be retryable", k)
		}
	}

	notRetryable := []Kind{KindInvalidUrl, KindMissingParam, KindTimeout, KindQueueTimeout, KindCancelled, KindInternal}
	for _, k := range notRetryable {
		if Retryable(k) {
			t.Errorf("expected %s to not be retryable", k)
		}
	}
}

func TestWithDetailsChains(t *testing.T) {
	err := New(KindInvalidUrl, "bad url").WithDetails("missing scheme")
	if err.Details != "missing scheme" {
		t.Errorf("expected details to be set, got %q", err.Details)
	}
}
