package textutil

import "testing"

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "trims", in: "  10 Downing St  ", want: "10 Downing St"},
		{name: "collapses", in: "10\tDowning \n St", want: "10 Downing St"},
		{name: "composes", in: "Cafe\u0301 Road", want: "Caf\u00e9 Road"},
		{name: "empty", in: "   ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeAddress(tt.in); got != tt.want {
				t.Fatalf("NormalizeAddress(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAddressKeyMatchesEquivalentForms(t *testing.T) {
	a := AddressKey("1600 Amphitheatre Pkwy., Mountain View, CA")
	b := AddressKey("1600  amphitheatre pkwy  mountain view ca")
	if a != b {
		t.Fatalf("expected equal keys, got %q and %q", a, b)
	}
	if AddressKey("\u00c9cole Rue") != AddressKey("e\u0301cole rue") {
		t.Fatalf("expected folded keys to match across case and composition")
	}
	if AddressKey("London") == AddressKey("Leeds") {
		t.Fatal("expected distinct keys for distinct addresses")
	}
}

func TestTernary(t *testing.T) {
	if got := Ternary(true, "a", "b"); got != "a" {
		t.Fatalf("Ternary(true) = %q", got)
	}
	if got := Ternary(false, 1, 2); got != 2 {
		t.Fatalf("Ternary(false) = %d", got)
	}
}
