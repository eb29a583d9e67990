package pipeline

import (
	"testing"

	"manifestcleaner/manifest"
)

func TestCleanPlaceName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"NHAVA SHEVA PORT", "NHAVA SHEVA"},
		{"NAHVA SHEVA", "NHAVA SHEVA"},
		{"Jawaharlal Nehru Port", "NHAVA SHEVA"},
		{"ICD TUGHLAKABAD", "TUGHLAKABAD"},
		{"MUNDRA PORT, INDIA", "MUNDRA"},
		{"INMUN", "MUNDRA"},
		{"LUDHIANA ICD (PB)", "LUDHIANA"},
		{"GRFL", "UNKNOWN"},
		{"HLCU", "UNKNOWN"},
		{"RAIL", "UNKNOWN"},
		{"DELHI ICD", "NEW DELHI"},
		{"NEW DELHI", "NEW DELHI"},
		{"SINGAPORE SEA PORT", "SINGAPORE"},
		{"KLPPL CFS", "PANKI"},
		{"SOMEWHERE ELSE", "SOMEWHERE ELSE"},
	}

	for _, tt := range tests {
		if got := CleanPlaceName(tt.input); got != tt.expected {
			t.Errorf("CleanPlaceName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestCleanPlaceOfReceipt(t *testing.T) {
	table, err := manifest.NewTable([]string{"Place of Receipt"})
	if err != nil {
		t.Fatal(err)
	}
	table.AppendRow([]string{"ICD TUGHLAKABAD"})
	table.AppendRow([]string{"nhava sheva port"})
	table.AppendRow([]string{""})

	if err := CleanPlaceOfReceipt(table, testLogger); err != nil {
		t.Fatal(err)
	}

	values, _ := table.Column("Place of Receipt")
	expected := []string{"TUGHLAKABAD", "NHAVA SHEVA", ""}
	for i, want := range expected {
		if values[i] != want {
			t.Errorf("row %d = %q, want %q", i, values[i], want)
		}
	}
}
