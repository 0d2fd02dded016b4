package provider

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"schoolwijzer/internal/log"
)

// fakeSleep records requested delays without actually sleeping.
func fakeSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestRetrierBackoffSchedule(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	r := NewRetrier(RetryConfig{}, nil, log.NewNop())
	r.sleep = fakeSleep(&delays)

	calls := 0
	text, err := r.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &Error{Kind: KindRateLimited, Err: errors.New("throttled")}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if text != "ok" {
		t.Errorf("text = %q, want %q", text, "ok")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	want := []time.Duration{time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestRetrierNonRetryableFailsFast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kind ErrorKind
	}{
		{"auth", KindAuth},
		{"fatal", KindFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var delays []time.Duration
			r := NewRetrier(RetryConfig{}, nil, log.NewNop())
			r.sleep = fakeSleep(&delays)

			calls := 0
			_, err := r.Do(context.Background(), func(context.Context) (string, error) {
				calls++
				return "", &Error{Kind: tt.kind, Err: errors.New("nope")}
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if calls != 1 {
				t.Errorf("calls = %d, want 1", calls)
			}
			if len(delays) != 0 {
				t.Errorf("delays = %v, want none", delays)
			}
			if KindOf(err) != tt.kind {
				t.Errorf("KindOf(err) = %v, want %v", KindOf(err), tt.kind)
			}
		})
	}
}

func TestRetrierExhaustionReturnsLastError(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	r := NewRetrier(RetryConfig{}, nil, log.NewNop())
	r.sleep = fakeSleep(&delays)

	calls := 0
	_, err := r.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", &Error{Kind: KindTimeout, Err: errors.New("too slow")}
	})
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if KindOf(err) != KindTimeout {
		t.Errorf("KindOf(err) = %v, want %v", KindOf(err), KindTimeout)
	}
}

func TestRetrierMaxDelayCap(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	r := NewRetrier(RetryConfig{MaxAttempts: 5, BaseDelay: 4 * time.Second, MaxDelay: 10 * time.Second}, nil, log.NewNop())
	r.sleep = fakeSleep(&delays)

	_, _ = r.Do(context.Background(), func(context.Context) (string, error) {
		return "", &Error{Kind: KindConnection, Err: errors.New("down")}
	})

	want := []time.Duration{4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestRetrierContextCanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	r := NewRetrier(RetryConfig{}, nil, log.NewNop())
	r.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := r.Do(ctx, func(context.Context) (string, error) {
		return "", &Error{Kind: KindRateLimited, Err: errors.New("throttled")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func singleFragment(text string, err error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !yield(text, nil) {
			return
		}
		if err != nil {
			yield("", err)
		}
	}
}

func failingStream(err error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", err)
	}
}

func TestRetrierStreamRetriesEstablishment(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	r := NewRetrier(RetryConfig{}, nil, log.NewNop())
	r.sleep = fakeSleep(&delays)

	attempts := 0
	seq := r.Stream(context.Background(), func(context.Context) iter.Seq2[string, error] {
		attempts++
		if attempts < 3 {
			return failingStream(&Error{Kind: KindConnection, Err: errors.New("refused")})
		}
		return singleFragment("hallo", nil)
	})

	var got string
	for text, err := range seq {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		got += text
	}
	if got != "hallo" {
		t.Errorf("got %q, want %q", got, "hallo")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if len(delays) != 2 {
		t.Errorf("delays = %v, want 2 entries", delays)
	}
}

func TestRetrierStreamNoRestartAfterFragment(t *testing.T) {
	t.Parallel()

	r := NewRetrier(RetryConfig{}, nil, log.NewNop())
	var delays []time.Duration
	r.sleep = fakeSleep(&delays)

	attempts := 0
	seq := r.Stream(context.Background(), func(context.Context) iter.Seq2[string, error] {
		attempts++
		return singleFragment("deel", &Error{Kind: KindConnection, Err: errors.New("mid-stream drop")})
	})

	var got string
	var streamErr error
	for text, err := range seq {
		if err != nil {
			streamErr = err
			break
		}
		got += text
	}
	if streamErr == nil {
		t.Fatal("expected terminal stream error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no restart after delivery)", attempts)
	}
	if got != "deel" {
		t.Errorf("got %q, want %q", got, "deel")
	}
}

func TestRetrierStreamNonRetryableEstablishment(t *testing.T) {
	t.Parallel()

	r := NewRetrier(RetryConfig{}, nil, log.NewNop())

	attempts := 0
	seq := r.Stream(context.Background(), func(context.Context) iter.Seq2[string, error] {
		attempts++
		return failingStream(&Error{Kind: KindAuth, Err: errors.New("bad key")})
	})

	var streamErr error
	for _, err := range seq {
		if err != nil {
			streamErr = err
		}
	}
	if KindOf(streamErr) != KindAuth {
		t.Errorf("KindOf = %v, want %v", KindOf(streamErr), KindAuth)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}
