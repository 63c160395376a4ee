package types

import "testing"

func TestParseMRN(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"123456782", false}, // valid check digit
		{"123456789", true},  // wrong check digit
		{"12345678", true},   // too short
		{"1234567890", true}, // too long
		{"12345678a", true},  // non-numeric
		{"", true},
	}

	for _, tt := range tests {
		_, err := ParseMRN(tt.input)
		if tt.wantErr && err == nil {
			t.Errorf("ParseMRN(%q): expected error", tt.input)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("ParseMRN(%q): unexpected error: %v", tt.input, err)
		}
	}
}

func TestMRNMasked(t *testing.T) {
	mrn, err := ParseMRN("123456782")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	masked := mrn.Masked()
	if masked != "******782" {
		t.Errorf("expected ******782, got %s", masked)
	}
}
