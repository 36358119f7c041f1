package mq

import (
	"testing"
	"time"
)

func TestKafkaMessageHeadersSurviveConversion(t *testing.T) {
	sent := NewMessage([]byte(`{"submission_id":"abc"}`))
	sent.ID = "abc"
	sent.RetryCount = 2
	sent.Expiration = 30 * time.Second
	sent.SetHeader("trace_id", "t-1")

	got := fromKafkaMessage(toKafkaMessage("judge.dispatch", sent))
	if got.ID != "abc" {
		t.Fatalf("expected id abc, got %q", got.ID)
	}
	if got.RetryCount != 2 || got.MaxRetries != 3 {
		t.Fatalf("unexpected retry info: %d/%d", got.RetryCount, got.MaxRetries)
	}
	if got.Expiration != 30*time.Second {
		t.Fatalf("unexpected expiration %v", got.Expiration)
	}
	if v, ok := got.GetHeader("trace_id"); !ok || v != "t-1" {
		t.Fatalf("expected trace header, got %q", v)
	}
	if _, ok := got.GetHeader(headerID); ok {
		t.Fatalf("reserved headers must not leak into Headers")
	}
}

func TestMessageExpired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{name: "no expiration", msg: Message{Timestamp: now.Add(-time.Hour)}, want: false},
		{name: "fresh", msg: Message{Timestamp: now.Add(-time.Second), Expiration: time.Minute}, want: false},
		{name: "stale", msg: Message{Timestamp: now.Add(-2 * time.Minute), Expiration: time.Minute}, want: true},
		{name: "no timestamp", msg: Message{Expiration: time.Minute}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.Expired(now); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSubscribeOptionsDefaults(t *testing.T) {
	var opts SubscribeOptions
	opts.SetDefaults()
	if opts.Concurrency != 1 || opts.PrefetchCount != 1 || opts.MaxRetries != 3 || opts.RetryDelay != time.Second {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}
