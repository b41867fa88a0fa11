package rows

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		stored    any
		requested any
		expected  bool
	}{
		{"abc", "abc", true},
		{" abc ", "abc", true},
		{"123", 123, true},
		{123.0, "123", true},
		{"45.0", "45", true},
		{"45.000", "45", true},
		{float64(1712345678901), "1712345678901", true},
		{"1.5e3", "1500", true},
		{"45", "46", false},
		{"abc", "abd", false},
		{"", "0", false},
		{"4.50", "4.5", true},
		{"a.0", "a", true},
		{"", "x", false},
		{"12345678901234567891", json.Number("12345678901234567891"), true},
		{"12345678901234567891", json.Number("12345678901234567000"), false},
		{"12345678901234567891", 12345678901234567000.0, false},
	}

	for _, tt := range tests {
		got := Match(tt.stored, tt.requested)
		if got != tt.expected {
			t.Errorf("Match(%#v, %#v) = %v, want %v", tt.stored, tt.requested, got, tt.expected)
		}
	}
}

func TestMatchReflexive(t *testing.T) {
	for _, id := range []any{"x", "0", "007", 12.5, "1712345678901", "a b", "-3"} {
		if !Match(id, id) {
			t.Errorf("Match(%#v, %#v) = false", id, id)
		}
	}
}

func TestMatchDoesNotMutate(t *testing.T) {
	stored := []any{"45.0"}
	Match(stored[0], "45")
	if stored[0] != "45.0" {
		t.Errorf("stored value changed to %#v", stored[0])
	}
}

func TestCellStringLargeNumber(t *testing.T) {
	if got := CellString(float64(1712345678901)); got != "1712345678901" {
		t.Errorf("expected no exponent, got %q", got)
	}
}

var itemHeader = []string{"id", "name", "cat", "qty", "unit", "loc", "minQty", "img", "desc", "status", "usedBy", "serial"}

func TestNumberAcceptsJSONNumber(t *testing.T) {
	rec := Record{"qty": json.Number("2.5"), "minQty": json.Number("x")}
	if got, ok := rec.Number("qty"); !ok || got != 2.5 {
		t.Errorf("expected qty 2.5, got %v %v", got, ok)
	}
	if _, ok := rec.Number("minQty"); ok {
		t.Error("expected invalid number to report false")
	}
}

func TestDecodeCoercion(t *testing.T) {
	table := Table{
		Header: itemHeader,
		Rows: [][]any{
			{float64(17), "Microscope", "Optics", "3", "pcs", "Lab A", 1.0, "", "", "In Use", `["alice","bob"]`, "SN1"},
			{"18", "Pipette", "", "", "", "", "", "", "", "Available", "not json", ""},
			{"19", "Short row"},
		},
	}

	recs := Decode(table)
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}

	if recs[0]["id"] != "17" {
		t.Errorf("expected id coerced to \"17\", got %#v", recs[0]["id"])
	}
	if recs[0]["qty"] != 3.0 {
		t.Errorf("expected qty 3, got %#v", recs[0]["qty"])
	}
	if !reflect.DeepEqual(recs[0]["usedBy"], []string{"alice", "bob"}) {
		t.Errorf("expected usedBy [alice bob], got %#v", recs[0]["usedBy"])
	}

	if recs[1]["qty"] != "" {
		t.Errorf("expected empty qty left untyped, got %#v", recs[1]["qty"])
	}
	if !reflect.DeepEqual(recs[1]["usedBy"], []string{}) {
		t.Errorf("expected empty usedBy on parse failure, got %#v", recs[1]["usedBy"])
	}

	if recs[2]["serial"] != "" {
		t.Errorf("expected missing cell decoded as empty, got %#v", recs[2]["serial"])
	}
}

func TestEncodeAbsentAndExtraFields(t *testing.T) {
	row := Encode(Record{"id": 42.0, "name": "Centrifuge", "usedBy": []string{"carol"}, "bogus": "x"}, itemHeader)
	if len(row) != len(itemHeader) {
		t.Fatalf("expected %d cells, got %d", len(itemHeader), len(row))
	}
	if row[0] != "42" {
		t.Errorf("expected id cell \"42\", got %#v", row[0])
	}
	if row[2] != "" {
		t.Errorf("expected absent cat as empty cell, got %#v", row[2])
	}
	if row[10] != `["carol"]` {
		t.Errorf("expected usedBy JSON, got %#v", row[10])
	}
}

func TestRoundTrip(t *testing.T) {
	records := []Record{
		{
			"id": "1712345678901", "name": "Microscope", "cat": "Optics", "qty": 2.0, "unit": "pcs",
			"loc": "Bench 3", "minQty": 1.0, "img": "https://example.org/m.png", "desc": "Zeiss",
			"status": "In Use", "usedBy": []string{"alice", "bob"}, "serial": "Z-1",
		},
		{
			"id": "x", "name": "", "cat": "", "qty": "", "unit": "", "loc": "", "minQty": "",
			"img": "", "desc": "", "status": "", "usedBy": []string{}, "serial": "",
		},
	}

	for _, r := range records {
		got := DecodeRow(itemHeader, Encode(r, itemHeader))
		if !reflect.DeepEqual(got, r) {
			t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, r)
		}
	}
}

func TestRoundTripDropsUndeclared(t *testing.T) {
	header := []string{"key", "value"}
	got := DecodeRow(header, Encode(Record{"key": "slack_mode", "value": "digest", "extra": 1}, header))
	want := Record{"key": "slack_mode", "value": "digest"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}
