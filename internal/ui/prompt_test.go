package ui

import (
	"strings"
	"testing"
)

func TestSelect_SingleOptionIsAutomatic(t *testing.T) {
	p := New(strings.NewReader(""), &strings.Builder{})
	idx, err := p.Select("pick", []string{"only"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if idx != 0 {
		t.Errorf("idx = %d, want 0", idx)
	}
}

func TestSelect_ReadsIndex(t *testing.T) {
	var out strings.Builder
	p := New(strings.NewReader("1\n"), &out)
	idx, err := p.Select("pick", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if idx != 1 {
		t.Errorf("idx = %d, want 1", idx)
	}
	if !strings.Contains(out.String(), "0: a") {
		t.Errorf("options not listed:\n%s", out.String())
	}
}

func TestSelect_RejectsOutOfRangeUntilValid(t *testing.T) {
	p := New(strings.NewReader("7\nx\n2\n"), &strings.Builder{})
	idx, err := p.Select("pick", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if idx != 2 {
		t.Errorf("idx = %d, want 2", idx)
	}
}

func TestSelect_EmptyOptions(t *testing.T) {
	p := New(strings.NewReader(""), &strings.Builder{})
	if _, err := p.Select("pick", nil); err == nil {
		t.Error("expected an error for empty options")
	}
}

func TestAskYesNo(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"  YES \n", true},
		{"n\n", false},
		{"no\n", false},
		{"maybe\nn\n", false},
	}
	for _, tt := range tests {
		p := New(strings.NewReader(tt.in), &strings.Builder{})
		got, err := p.AskYesNo("replace?")
		if err != nil {
			t.Fatalf("AskYesNo(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("AskYesNo(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
