package manifest

import (
	"reflect"
	"testing"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable([]string{"Shipper", "Consignee"})
	if err != nil {
		t.Fatal(err)
	}
	table.AppendRow([]string{"ACME", "GLOBEX"})
	table.AppendRow([]string{"SHIVAM", "INITECH"})
	return table
}

func TestNewTableRejectsBadHeaders(t *testing.T) {
	if _, err := NewTable(nil); err == nil {
		t.Error("expected error for empty header list")
	}
	if _, err := NewTable([]string{"A", ""}); err == nil {
		t.Error("expected error for empty header")
	}
	if _, err := NewTable([]string{"A", "A"}); err == nil {
		t.Error("expected error for duplicate header")
	}
}

func TestTableAppendRowPadsAndTruncates(t *testing.T) {
	table, err := NewTable([]string{"A", "B", "C"})
	if err != nil {
		t.Fatal(err)
	}
	table.AppendRow([]string{"1"})
	table.AppendRow([]string{"1", "2", "3", "4"})

	if got := table.Row(0); !reflect.DeepEqual(got, []string{"1", "", ""}) {
		t.Errorf("short row = %v", got)
	}
	if got := table.Row(1); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Errorf("long row = %v", got)
	}
}

func TestTableSetColumn(t *testing.T) {
	table := newTestTable(t)

	if err := table.SetColumn("LSP", []string{"MAERSK", ""}); err != nil {
		t.Fatal(err)
	}
	if got := table.Headers(); !reflect.DeepEqual(got, []string{"Shipper", "Consignee", "LSP"}) {
		t.Errorf("headers = %v", got)
	}

	if err := table.SetColumn("LSP", []string{"ONLY ONE"}); err == nil {
		t.Error("expected error for wrong value count")
	}
}

func TestTableColumnReturnsCopy(t *testing.T) {
	table := newTestTable(t)

	values, _ := table.Column("Shipper")
	values[0] = "MUTATED"

	fresh, _ := table.Column("Shipper")
	if fresh[0] != "ACME" {
		t.Error("Column must return a copy, table was mutated")
	}
}

func TestTableEnsureIDColumn(t *testing.T) {
	table := newTestTable(t)

	if err := table.EnsureIDColumn("Row ID"); err != nil {
		t.Fatal(err)
	}
	ids, ok := table.Column("Row ID")
	if !ok {
		t.Fatal("Row ID column not created")
	}
	if !reflect.DeepEqual(ids, []string{"1", "2"}) {
		t.Errorf("ids = %v", ids)
	}

	// Повторный вызов не меняет существующую колонку
	if err := table.EnsureIDColumn("Row ID"); err != nil {
		t.Fatal(err)
	}

	// Пустой идентификатор недопустим
	if err := table.SetColumn("Row ID", []string{"1", ""}); err != nil {
		t.Fatal(err)
	}
	if err := table.EnsureIDColumn("Row ID"); err == nil {
		t.Error("expected error for empty identifier")
	}
}

func TestTableRenameColumn(t *testing.T) {
	table := newTestTable(t)

	if err := table.RenameColumn("Shipper", "Shipper Name"); err != nil {
		t.Fatal(err)
	}
	if got := table.Headers(); !reflect.DeepEqual(got, []string{"Shipper Name", "Consignee"}) {
		t.Errorf("headers = %v", got)
	}
	if got := table.Cell(0, "Shipper Name"); got != "ACME" {
		t.Errorf("Cell = %q", got)
	}

	if err := table.RenameColumn("Missing", "X"); err == nil {
		t.Error("expected error for unknown column")
	}
	if err := table.RenameColumn("Shipper Name", "Consignee"); err == nil {
		t.Error("expected error for existing target name")
	}
}

func TestTableDropColumn(t *testing.T) {
	table := newTestTable(t)

	table.DropColumn("Shipper")
	if table.HasColumn("Shipper") {
		t.Error("column must be removed")
	}
	if got := table.Headers(); !reflect.DeepEqual(got, []string{"Consignee"}) {
		t.Errorf("headers = %v", got)
	}

	// Удаление несуществующей колонки безопасно
	table.DropColumn("Shipper")
}

func TestTableFilter(t *testing.T) {
	table := newTestTable(t)

	filtered := table.Filter([]bool{false, true})
	if filtered.RowCount() != 1 {
		t.Fatalf("RowCount = %d, want 1", filtered.RowCount())
	}
	if got := filtered.Row(0); !reflect.DeepEqual(got, []string{"SHIVAM", "INITECH"}) {
		t.Errorf("row = %v", got)
	}
}
