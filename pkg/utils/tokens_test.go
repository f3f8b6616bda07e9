package utils

import "testing"

func TestCountFallsBackToEstimate(t *testing.T) {
	var counter *TokenCounter
	text := "twelve chars"
	if got, want := counter.Count(text), EstimateTokens(text); got != want {
		t.Errorf("nil counter must estimate: got %d, want %d", got, want)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("empty text estimates %d tokens", got)
	}
	if got := EstimateTokens("abcdefgh"); got != 2 {
		t.Errorf("expected 2 tokens for 8 chars, got %d", got)
	}
}

func TestCounterCountsMoreForLongerText(t *testing.T) {
	counter, err := NewTokenCounter("gpt-4o")
	if err != nil {
		t.Skipf("encoding unavailable: %v", err)
	}
	short := counter.Count("hello")
	long := counter.Count("hello world, this sentence is quite a bit longer than the other one")
	if long <= short {
		t.Errorf("longer text must count more tokens: %d vs %d", long, short)
	}
}
