package domain

import (
	"errors"
	"testing"
)

func TestDecide(t *testing.T) {
	t.Parallel()
	fail := errors.New("boom")
	cases := []struct {
		attempt int
		err     error
		want    Outcome
	}{
		{1, nil, Done},
		{3, nil, Done},
		{1, fail, Retry},
		{2, fail, Retry},
		{3, fail, Abandon},
		{7, fail, Abandon},
	}
	for _, tc := range cases {
		if got := Decide(tc.attempt, DefaultMaxAttempts, tc.err); got != tc.want {
			t.Fatalf("Decide(%d, %v) = %s, want %s", tc.attempt, tc.err, got, tc.want)
		}
	}
}

func TestAttemptsNeverExceedCeiling(t *testing.T) {
	t.Parallel()
	// a message that always fails is delivered until it is abandoned
	fail := errors.New("always")
	attempt := 0
	for {
		attempt++
		if attempt > DefaultMaxAttempts {
			t.Fatalf("delivered %d times", attempt)
		}
		if Decide(attempt, DefaultMaxAttempts, fail) == Abandon {
			break
		}
	}
	if attempt != DefaultMaxAttempts {
		t.Fatalf("abandoned after %d attempts", attempt)
	}
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()
	for o, want := range map[Outcome]string{Done: "done", Retry: "retried", Abandon: "abandoned", 0: "unknown"} {
		if o.String() != want {
			t.Fatalf("%d = %q", o, o.String())
		}
	}
}
