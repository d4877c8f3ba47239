package models

import (
	"errors"
	"strings"
	"testing"
)

func sampleTable() Table {
	return NewTable([]Listing{
		{Model: "ford f150", Type: "truck"},
		{Model: "honda civic", Type: "sedan"},
		{Model: "ford escape", Type: "SUV"},
		{Model: "bmw x5", Type: "SUV"},
	})
}

func TestTableWherePreservesOrder(t *testing.T) {
	tbl := sampleTable()
	suv := tbl.Where(func(l Listing) bool { return l.Type == "SUV" })

	if suv.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", suv.Len())
	}
	if suv.At(0).Model != "ford escape" || suv.At(1).Model != "bmw x5" {
		t.Errorf("order not preserved: %q, %q", suv.At(0).Model, suv.At(1).Model)
	}
}

func TestTableWhereOnView(t *testing.T) {
	tbl := sampleTable()
	suv := tbl.Where(func(l Listing) bool { return l.Type == "SUV" })
	bmw := suv.Where(func(l Listing) bool { return strings.HasPrefix(l.Model, "bmw") })

	if bmw.Len() != 1 || bmw.At(0).Model != "bmw x5" {
		t.Errorf("nested Where: got %d rows", bmw.Len())
	}
}

func TestTableIsNotMutatedByCallers(t *testing.T) {
	src := []Listing{{Model: "kia soul"}}
	tbl := NewTable(src)
	src[0].Model = "changed"

	rows := tbl.Rows()
	rows[0].Model = "also changed"

	if tbl.At(0).Model != "kia soul" {
		t.Errorf("table mutated: got %q", tbl.At(0).Model)
	}
}

func TestTableHead(t *testing.T) {
	tbl := sampleTable()

	tests := []struct {
		n    int
		want int
	}{
		{0, 4},
		{2, 2},
		{10, 4},
		{-1, 4},
	}
	for _, tt := range tests {
		if got := tbl.Head(tt.n).Len(); got != tt.want {
			t.Errorf("Head(%d).Len() = %d; want %d", tt.n, got, tt.want)
		}
	}

	trucks := tbl.Where(func(l Listing) bool { return l.Type != "sedan" }).Head(2)
	if trucks.At(1).Model != "ford escape" {
		t.Errorf("Head on view: got %q", trucks.At(1).Model)
	}
}

func TestParseErrorUnwrap(t *testing.T) {
	cause := errors.New("bad month")
	err := error(&ParseError{Row: 3, Column: "date_posted", Value: "2019-13-01", Err: cause})

	if !errors.Is(err, cause) {
		t.Error("ParseError should unwrap to its cause")
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Row != 3 {
		t.Error("errors.As should find the ParseError")
	}
}

func TestSchemaErrorMessage(t *testing.T) {
	err := &SchemaError{Missing: []string{"price", "type"}}
	if !strings.Contains(err.Error(), "price, type") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
