package detection

import "testing"

func TestLabelMap_Name(t *testing.T) {
	m := NewLabelMap([]string{"cargo", "hatch"})

	tests := []struct {
		id   int
		want string
	}{
		{0, "cargo"},
		{1, "hatch"},
		{2, "CLS2"},
		{-1, "CLS-1"},
	}

	for _, tc := range tests {
		if got := m.Name(tc.id); got != tc.want {
			t.Errorf("Name(%d): got %q, want %q", tc.id, got, tc.want)
		}
	}
}

func TestLabelMap_IsCopy(t *testing.T) {
	names := []string{"a", "b"}
	m := NewLabelMap(names)
	names[0] = "changed"

	if m.Name(0) != "a" {
		t.Errorf("label map shares caller slice")
	}

	out := m.Names()
	out[1] = "changed"
	if m.Name(1) != "b" {
		t.Errorf("Names returned internal slice")
	}
}

func TestDefaultLabels(t *testing.T) {
	tests := []struct {
		name string
		n    int
		last string
	}{
		{"coco", 80, "toothbrush"},
		{"truncated", 2, "bicycle"},
		{"extended", 82, "CLS81"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := DefaultLabels(tc.n)
			if m.Len() != tc.n {
				t.Fatalf("Len: got %d, want %d", m.Len(), tc.n)
			}
			if got := m.Name(tc.n - 1); got != tc.last {
				t.Errorf("last label: got %q, want %q", got, tc.last)
			}
		})
	}
}
