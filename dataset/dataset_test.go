package dataset

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestFixed(t *testing.T) {
	s := Fixed()
	if len(s) != 1 {
		t.Fatalf("expected one sample, got %d", len(s))
	}
	if len(s[0].Inputs) != 4 || len(s[0].Targets) != 3 {
		t.Errorf("expected 4 inputs and 3 targets, got %d and %d", len(s[0].Inputs), len(s[0].Targets))
	}
	if s[0].Targets[1] != 20.54553 {
		t.Errorf("unexpected target %v", s[0].Targets[1])
	}
}

func TestSine(t *testing.T) {
	a := Sine(64, rand.NewPCG(1, 2))
	b := Sine(64, rand.NewPCG(1, 2))

	if len(a) != 64 {
		t.Fatalf("expected 64 samples, got %d", len(a))
	}
	for i := range a {
		x := a[i].Inputs[0]
		if x < 0 || x >= 2*math.Pi {
			t.Errorf("sample %d: x = %v outside [0, 2π)", i, x)
		}
		if a[i].Targets[0] != math.Sin(x) {
			t.Errorf("sample %d: target %v is not sin(%v)", i, a[i].Targets[0], x)
		}
		if b[i].Inputs[0] != x {
			t.Errorf("sample %d: same seed gave %v and %v", i, x, b[i].Inputs[0])
		}
	}

	if n := len(Sine(0, rand.NewPCG(1, 2))); n != 0 {
		t.Errorf("expected no samples, got %d", n)
	}
}

func TestBatches(t *testing.T) {
	samples := Sine(10, rand.NewPCG(3, 4))

	tests := []struct {
		size     int
		expected []int
	}{
		{1, []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}},
		{3, []int{3, 3, 3, 1}},
		{5, []int{5, 5}},
		{32, []int{10}},
	}
	for _, tt := range tests {
		batches := Batches(samples, tt.size)
		if len(batches) != len(tt.expected) {
			t.Errorf("size %d: expected %d batches, got %d", tt.size, len(tt.expected), len(batches))
			continue
		}
		seen := 0
		for i, b := range batches {
			if len(b) != tt.expected[i] {
				t.Errorf("size %d: batch %d has %d samples, expected %d", tt.size, i, len(b), tt.expected[i])
			}
			for _, s := range b {
				if s.Inputs[0] != samples[seen].Inputs[0] {
					t.Errorf("size %d: sample order changed at %d", tt.size, seen)
				}
				seen++
			}
		}
	}

	if n := len(Batches(nil, 4)); n != 0 {
		t.Errorf("expected no batches for no samples, got %d", n)
	}

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for zero batch size")
		}
	}()
	Batches(samples, 0)
}
