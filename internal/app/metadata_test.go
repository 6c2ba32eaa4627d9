package app

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestSelectionsEqual(t *testing.T) {
	idA := uuid.New().String()
	idB := uuid.New().String()

	tests := []struct {
		name string
		a    map[string]int64
		b    map[string]int64
		want bool
	}{
		{
			name: "same entries different insertion order",
			a:    map[string]int64{idA: 2, idB: 1},
			b:    map[string]int64{idB: 1, idA: 2},
			want: true,
		},
		{
			name: "key casing is ignored",
			a:    map[string]int64{idA: 2},
			b:    map[string]int64{strings.ToUpper(idA): 2},
			want: true,
		},
		{
			name: "quantity differs",
			a:    map[string]int64{idA: 2},
			b:    map[string]int64{idA: 3},
			want: false,
		},
		{
			name: "extra entry",
			a:    map[string]int64{idA: 2},
			b:    map[string]int64{idA: 2, idB: 1},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectionsEqual(tt.a, tt.b); got != tt.want {
				t.Fatalf("selectionsEqual = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestSelectionFromMetadataCoercesQuantities(t *testing.T) {
	idA := uuid.New().String()
	idB := uuid.New().String()

	selection, ok, err := selectionFromMetadata(map[string]interface{}{
		"Vote": map[string]interface{}{
			idA: "2",
			idB: float64(3),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected selection to be present")
	}
	if selection[idA] != 2 || selection[idB] != 3 {
		t.Fatalf("unexpected selection: %v", selection)
	}
}

func TestSelectionFromMetadataAbsent(t *testing.T) {
	_, ok, err := selectionFromMetadata(map[string]interface{}{"discount_code": "SAVE10"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected no selection for metadata without vote key")
	}
}

func TestSelectionFromMetadataRejectsNonNumericQuantity(t *testing.T) {
	_, _, err := selectionFromMetadata(map[string]interface{}{
		"vote": map[string]interface{}{uuid.New().String(): "two"},
	})
	if err == nil {
		t.Fatal("expected error for non-numeric quantity")
	}
}

func TestBundleLinesFromMetadata(t *testing.T) {
	idA := uuid.New().String()

	lines, ok, err := bundleLinesFromMetadata(map[string]interface{}{
		"bundles": []interface{}{
			map[string]interface{}{
				"Bundle_ID":     idA,
				"Quantity":      "4",
				"discount_code": " SAVE10 ",
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || len(lines) != 1 {
		t.Fatalf("expected one line, got ok=%t lines=%v", ok, lines)
	}
	if lines[0].BundleID != idA || lines[0].Quantity != 4 || lines[0].DiscountCode != "SAVE10" {
		t.Fatalf("unexpected line: %+v", lines[0])
	}
}

func TestBundleLinesFromMetadataMissingBundleID(t *testing.T) {
	_, _, err := bundleLinesFromMetadata(map[string]interface{}{
		"bundles": []interface{}{
			map[string]interface{}{"quantity": float64(1)},
		},
	})
	if err == nil {
		t.Fatal("expected error for line without bundle_id")
	}
}

func TestDiscountCodeFromMetadataFallsBackToPromoCode(t *testing.T) {
	if got := discountCodeFromMetadata(map[string]interface{}{"promo_code": "SAVE10"}); got != "SAVE10" {
		t.Fatalf("expected SAVE10, got %q", got)
	}
	if got := discountCodeFromMetadata(map[string]interface{}{}); got != "" {
		t.Fatalf("expected empty code, got %q", got)
	}
}
