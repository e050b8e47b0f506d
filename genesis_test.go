package hashgate

import (
	"encoding/json"
	"testing"
)

func TestOptionsReadOptions(t *testing.T) {
	opts := Options{
		"factory": json.RawMessage(`{"rescue_delay": 42}`),
		"broken":  json.RawMessage(`{"rescue_delay": `),
	}

	var conf struct {
		RescueDelay uint32 `json:"rescue_delay"`
	}
	if err := opts.ReadOptions("factory", &conf); err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if conf.RescueDelay != 42 {
		t.Fatalf("got %d", conf.RescueDelay)
	}

	// missing key is a noop
	var ignored struct{}
	if err := opts.ReadOptions("missing", &ignored); err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}

	if err := opts.ReadOptions("broken", &conf); err == nil {
		t.Fatal("broken json must error")
	}
}
