package domain

import "testing"

func TestNodeIdLayer(t *testing.T) {
	id := NodeId(0x04030201)
	tests := []struct {
		layer int
		want  byte
	}{
		{0, 0x01},
		{1, 0x02},
		{2, 0x03},
		{3, 0x04},
	}
	for _, tt := range tests {
		if got := id.Layer(tt.layer); got != tt.want {
			t.Errorf("Layer(%d) = %#x, want %#x", tt.layer, got, tt.want)
		}
	}
}

func TestEqUtilLayer(t *testing.T) {
	tests := []struct {
		name string
		a, b NodeId
		want int
	}{
		{"identical", 0x01020304, 0x01020304, 4},
		{"differ low byte", 0x01020304, 0x01020305, 3},
		{"differ top byte", 0x01020304, 0x02020304, 0},
		{"differ second-top byte", 0x01020304, 0x01030304, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.EqUtilLayer(tt.b); got != tt.want {
				t.Errorf("EqUtilLayer = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLookupLayer(t *testing.T) {
	// eq_util_layer == 0 clamps to layer 0, not -1.
	if got := LookupLayer(0x01020304, 0x0A020304); got != 0 {
		t.Errorf("LookupLayer = %d, want 0", got)
	}
	// eq_util_layer == 4 (self) also clamps to layer 3 at most via callers;
	// LookupLayer itself returns eq-1 = 3.
	if got := LookupLayer(0x01020304, 0x01020305); got != 2 {
		t.Errorf("LookupLayer = %d, want 2", got)
	}
}
