package dbtypes

import "testing"

func TestCartLinesScanValue(t *testing.T) {
	lines := CartLines{{ProductID: 1, Quantity: 5}, {ProductID: 3, Quantity: 2}}
	v, err := lines.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var decoded CartLines
	if err := decoded.Scan(v); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if len(decoded) != 2 || decoded[0].ProductID != 1 || decoded[1].Quantity != 2 {
		t.Fatalf("unexpected decoded lines %+v", decoded)
	}

	if err := decoded.Scan([]byte(`[{"product_id":9,"quantity":1}]`)); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if len(decoded) != 1 || decoded[0].ProductID != 9 {
		t.Fatalf("unexpected decoded lines %+v", decoded)
	}
}

func TestCartLinesEmpty(t *testing.T) {
	v, err := CartLines(nil).Value()
	if err != nil || v != "[]" {
		t.Fatalf("expected empty json array, got %v err=%v", v, err)
	}

	var decoded CartLines
	if err := decoded.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if decoded == nil || len(decoded) != 0 {
		t.Fatalf("expected empty non-nil lines, got %#v", decoded)
	}

	if err := decoded.Scan(42); err == nil {
		t.Fatal("expected unsupported type error")
	}
}

func TestCartLinesClone(t *testing.T) {
	orig := CartLines{{ProductID: 1, Quantity: 1}}
	clone := orig.Clone()
	clone[0].Quantity = 9
	if orig[0].Quantity != 1 {
		t.Fatal("clone must not alias the original")
	}
}
