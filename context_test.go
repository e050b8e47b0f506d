package hashgate

import (
	"context"
	"testing"
	"time"
)

func TestBlockTime(t *testing.T) {
	ctx := context.Background()

	if _, ok := BlockTime(ctx); ok {
		t.Fatal("empty context must carry no time")
	}

	now := time.Unix(1700000000, 0)
	ctx = WithBlockTime(ctx, now)

	got, ok := BlockTime(ctx)
	if !ok {
		t.Fatal("time not found")
	}
	if !got.Equal(now) {
		t.Fatalf("want %s, got %s", now, got)
	}
	if MustBlockTime(ctx) != 1700000000 {
		t.Fatalf("got %d", MustBlockTime(ctx))
	}
}

func TestMustBlockTimePanicsWhenUnset(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("panic expected")
		}
	}()
	MustBlockTime(context.Background())
}

func TestIsExpired(t *testing.T) {
	ctx := WithBlockTime(context.Background(), time.Unix(1000, 0))

	if IsExpired(ctx, 1001) {
		t.Fatal("future is not expired")
	}
	// expiration is inclusive
	if !IsExpired(ctx, 1000) {
		t.Fatal("now is expired")
	}
	if !IsExpired(ctx, 999) {
		t.Fatal("past is expired")
	}
}

func TestContextLoggerAndChainID(t *testing.T) {
	ctx := context.Background()

	if GetLogger(ctx) != DefaultLogger {
		t.Fatal("default logger expected")
	}
	if GetChainID(ctx) != "" {
		t.Fatal("empty chain id expected")
	}
	ctx = WithChainID(ctx, "hashgate-1")
	if GetChainID(ctx) != "hashgate-1" {
		t.Fatalf("got %q", GetChainID(ctx))
	}
}
