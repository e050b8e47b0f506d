package hashgate

import (
	"encoding/json"
	"testing"

	"github.com/hashgate/hashgate/errors"
)

func TestNewCondition(t *testing.T) {
	cond := NewCondition("escrow", "src", []byte{1, 2, 3})
	if err := cond.Validate(); err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	ext, typ, data, err := cond.Parse()
	if err != nil {
		t.Fatalf("parse: %+v", err)
	}
	if ext != "escrow" || typ != "src" || string(data) != string([]byte{1, 2, 3}) {
		t.Fatalf("bad parse: %s %s %X", ext, typ, data)
	}
}

func TestConditionAddressIsStable(t *testing.T) {
	a := NewCondition("escrow", "src", []byte("payload")).Address()
	b := NewCondition("escrow", "src", []byte("payload")).Address()
	if !a.Equals(b) {
		t.Fatal("same condition must derive the same address")
	}
	if len(a) != AddressLength {
		t.Fatalf("address length %d", len(a))
	}

	c := NewCondition("escrow", "dst", []byte("payload")).Address()
	if a.Equals(c) {
		t.Fatal("different conditions must derive different addresses")
	}
}

func TestConditionValidate(t *testing.T) {
	cases := map[string]struct {
		cond    Condition
		wantErr *errors.Error
	}{
		"valid": {
			cond: NewCondition("escrow", "src", []byte("data")),
		},
		"empty": {
			cond:    Condition{},
			wantErr: errors.ErrInput,
		},
		"missing separators": {
			cond:    Condition("justtext"),
			wantErr: errors.ErrInput,
		},
		"invalid characters": {
			cond:    Condition("Escrow!/src/data"),
			wantErr: errors.ErrInput,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			err := tc.cond.Validate()
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
		})
	}
}

func TestAddressValidate(t *testing.T) {
	addr := NewCondition("a_b", "c_d", []byte("x")).Address()
	if err := addr.Validate(); err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if err := Address(nil).Validate(); !errors.ErrInput.Is(err) {
		t.Fatalf("unexpected error: %+v", err)
	}
	if err := Address([]byte("short")).Validate(); !errors.ErrInput.Is(err) {
		t.Fatalf("unexpected error: %+v", err)
	}
}

func TestAddressJSONRoundTrip(t *testing.T) {
	addr := NewCondition("escrow", "src", []byte("json")).Address()

	raw, err := json.Marshal(addr)
	if err != nil {
		t.Fatalf("marshal: %+v", err)
	}
	var restored Address
	if err := json.Unmarshal(raw, &restored); err != nil {
		t.Fatalf("unmarshal: %+v", err)
	}
	if !addr.Equals(restored) {
		t.Fatalf("want %s, got %s", addr, restored)
	}
}

func TestAddressUnmarshalJSONFormats(t *testing.T) {
	cond := NewCondition("escrow", "src", []byte("fmt"))

	cases := map[string]struct {
		json    string
		want    Address
		wantErr *errors.Error
	}{
		"hex": {
			json: `"` + cond.Address().String() + `"`,
			want: cond.Address(),
		},
		"cond": {
			json: `"cond:escrow/src/666D74"`,
			want: cond.Address(),
		},
		"empty zeroes the address": {
			json: `""`,
			want: nil,
		},
		"unknown format": {
			json:    `"fmtx:deadbeef"`,
			wantErr: errors.ErrType,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var a Address
			err := a.UnmarshalJSON([]byte(tc.json))
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
			if tc.wantErr == nil && !a.Equals(tc.want) {
				t.Fatalf("want %s, got %s", tc.want, a)
			}
		})
	}

	var a Address
	if err := a.UnmarshalJSON([]byte(`"zzzz"`)); err == nil {
		t.Fatal("malformed hex must be rejected")
	}
}
