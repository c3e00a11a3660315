package input

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestButtonText(t *testing.T) {
	tests := []struct {
		text string
		want Button
		err  bool
	}{
		{"A", A, false},
		{"start", Start, false},
		{"Down", Down, false},
		{"turbo", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			var b Button
			err := b.UnmarshalText([]byte(tt.text))
			if tt.err {
				if err == nil {
					t.Fatalf("UnmarshalText(%q) = %v, want error", tt.text, b)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if b != tt.want {
				t.Errorf("UnmarshalText(%q) = %v, want %v", tt.text, b, tt.want)
			}
		})
	}
}

func TestButtonMask(t *testing.T) {
	var got [ButtonCount]uint8
	for b := range ButtonCount {
		got[b] = b.Mask()
	}
	want := [ButtonCount]uint8{1, 2, 4, 8, 1, 2, 4, 8}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("masks mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigButton(t *testing.T) {
	cfg := DefaultConfig()
	if b, ok := cfg.Button("enter"); !ok || b != Start {
		t.Errorf("Button(enter) = %v, %t", b, ok)
	}
	if _, ok := cfg.Button("F12"); ok {
		t.Error("Button(F12) found")
	}
}
