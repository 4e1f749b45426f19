package pricefeed

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		n    int
		want time.Duration
	}{
		{-1, time.Second},
		{0, time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{6, 60 * time.Second},
		{100, 60 * time.Second},
	}
	for _, tt := range tests {
		if got := backoff(tt.n); got != tt.want {
			t.Errorf("backoff(%d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		value  string
		want   time.Duration
		wantOK bool
	}{
		{name: "Seconds", value: "30", want: 30 * time.Second, wantOK: true},
		{name: "HTTP date", value: "Thu, 15 Oct 2026 12:00:10 GMT", want: 10 * time.Second, wantOK: true},
		{name: "Past date", value: "Thu, 15 Oct 2026 11:00:00 GMT", want: 0, wantOK: true},
		{name: "Empty", value: "", wantOK: false},
		{name: "Garbage", value: "soon", wantOK: false},
		{name: "Negative", value: "-5", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseRetryAfter(tt.value, now)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("got (%s, %v), want (%s, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
