package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{NewInvalidArgument("bad plan"), InvalidArgumentKind},
		{NewTransient("rate limited", nil), GenerationTransientKind},
		{NewPermanent("invalid prompt", nil), GenerationPermanentKind},
		{NewConcatenation("ffmpeg missing", nil), ConcatenationKind},
		{NewNotFound("session gone"), NotFoundKind},
	}

	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.kind {
			t.Fatalf("KindOf(%v) = %s, want %s", tc.err, got, tc.kind)
		}
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("image phase: %w", NewPermanent("quota exhausted", nil))
	if IsTransient(err) {
		t.Fatal("wrapped permanent error classified transient")
	}
	if KindOf(err) != GenerationPermanentKind {
		t.Fatalf("expected permanent kind through wrapping, got %s", KindOf(err))
	}
}

func TestUnclassifiedErrorsAreTransient(t *testing.T) {
	if !IsTransient(errors.New("connection reset")) {
		t.Fatal("unclassified errors must default to transient")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := NewTransient("request failed", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause should be reachable through Unwrap")
	}
}
