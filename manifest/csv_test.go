package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

func writeTempCSV(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.csv")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeTempCSV(t, []byte("Shipper,Consignee\nACME,GLOBEX\nSHIVAM,INITECH\n"))

	table, err := ReadCSV(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if table.RowCount() != 2 {
		t.Fatalf("RowCount = %d, want 2", table.RowCount())
	}
	if got := table.Row(0); !reflect.DeepEqual(got, []string{"ACME", "GLOBEX"}) {
		t.Errorf("row 0 = %v", got)
	}
}

func TestReadCSVStripsBOM(t *testing.T) {
	path := writeTempCSV(t, append([]byte{0xEF, 0xBB, 0xBF}, []byte("Shipper\nACME\n")...))

	table, err := ReadCSV(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := table.Headers(); !reflect.DeepEqual(got, []string{"Shipper"}) {
		t.Errorf("headers = %v, BOM not stripped", got)
	}
}

func TestReadCSVRepairsWindows1251(t *testing.T) {
	// Выгрузка в Windows-1251: кириллица в названии контрагента
	utf8Content := "Shipper,Consignee\nООО РОМАШКА,GLOBEX\n"
	encoded, _, err := transform.Bytes(charmap.Windows1251.NewEncoder(), []byte(utf8Content))
	if err != nil {
		t.Fatal(err)
	}
	path := writeTempCSV(t, encoded)

	table, err := ReadCSV(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	shipper, _ := table.Column("Shipper")
	if shipper[0] != "ООО РОМАШКА" {
		t.Errorf("shipper = %q, encoding not repaired", shipper[0])
	}
}

func TestReadCSVRaggedRows(t *testing.T) {
	path := writeTempCSV(t, []byte("A,B,C\n1,2\n1,2,3,4\n"))

	table, err := ReadCSV(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := table.Row(0); !reflect.DeepEqual(got, []string{"1", "2", ""}) {
		t.Errorf("short row = %v", got)
	}
	if got := table.Row(1); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Errorf("long row = %v", got)
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	table, err := NewTable([]string{"Shipper", "LCL"})
	if err != nil {
		t.Fatal(err)
	}
	table.AppendRow([]string{"ACME, INC", "Yes"})
	table.AppendRow([]string{"GLOBEX", "No"})

	path := filepath.Join(t.TempDir(), "out.csv")
	if err := WriteCSV(table, path); err != nil {
		t.Fatal(err)
	}

	loaded, err := ReadCSV(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := loaded.Row(0); !reflect.DeepEqual(got, []string{"ACME, INC", "Yes"}) {
		t.Errorf("row 0 = %v", got)
	}
}
