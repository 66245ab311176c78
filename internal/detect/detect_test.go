package detect

import (
	"testing"

	"github.com/aymanhs/pizzatrack/internal/geometry"
)

func TestParseClass(t *testing.T) {
	tests := []struct {
		label   string
		want    Class
		wantErr bool
	}{
		{"hand", ClassHand, false},
		{"Hand", ClassHand, false},
		{"SCOOPER", ClassScooper, false},
		{"pizza", ClassPizza, false},
		{"person", ClassPerson, false},
		{"oven", "", true},
	}

	for _, tt := range tests {
		got, err := ParseClass(tt.label)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseClass(%q) expected error", tt.label)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClass(%q) unexpected error: %v", tt.label, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClass(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestDetectionValidate(t *testing.T) {
	good := Detection{Class: ClassHand, Box: geometry.BBox{X1: 0, Y1: 0, X2: 10, Y2: 10}, Confidence: 0.8}
	if err := good.Validate(); err != nil {
		t.Errorf("unexpected error for valid detection: %v", err)
	}

	badBox := Detection{Class: ClassHand, Box: geometry.BBox{X1: 10, Y1: 0, X2: 5, Y2: 10}, Confidence: 0.8}
	if err := badBox.Validate(); err == nil {
		t.Error("expected error for inverted bbox")
	}

	badConf := Detection{Class: ClassHand, Box: geometry.BBox{X1: 0, Y1: 0, X2: 10, Y2: 10}, Confidence: 1.4}
	if err := badConf.Validate(); err == nil {
		t.Error("expected error for confidence > 1")
	}
}

func TestFrameByClass(t *testing.T) {
	f := &Frame{
		Number: 7,
		Detections: []Detection{
			{Class: ClassHand, Box: geometry.BBox{X1: 0, Y1: 0, X2: 10, Y2: 10}, Confidence: 0.9},
			{Class: ClassHand, Box: geometry.BBox{X1: 20, Y1: 0, X2: 30, Y2: 10}, Confidence: 0.2},  // below floor
			{Class: ClassPizza, Box: geometry.BBox{X1: 50, Y1: 0, X2: 40, Y2: 10}, Confidence: 0.9}, // malformed
			{Class: ClassScooper, Box: geometry.BBox{X1: 5, Y1: 5, X2: 15, Y2: 15}, Confidence: 0.6},
		},
	}

	byClass, skipped := f.ByClass(0.4)

	if skipped != 1 {
		t.Errorf("expected 1 skipped malformed detection, got %d", skipped)
	}
	if len(byClass[ClassHand]) != 1 {
		t.Errorf("expected 1 hand above confidence floor, got %d", len(byClass[ClassHand]))
	}
	if len(byClass[ClassScooper]) != 1 {
		t.Errorf("expected 1 scooper, got %d", len(byClass[ClassScooper]))
	}
	if len(byClass[ClassPizza]) != 0 {
		t.Errorf("malformed pizza detection should be dropped, got %d", len(byClass[ClassPizza]))
	}
}
