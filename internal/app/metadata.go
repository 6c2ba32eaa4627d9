package app

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/votely/voting-service/internal/domain"
)

// Payment metadata arrives as an opaque JSON object recorded by the gateway at
// charge time. Keys are matched case-insensitively and bundle quantities are
// coerced from whatever JSON number or string representation the gateway
// stored, so a selection recorded as {"Vote": {"<id>": "2"}} still compares
// equal to a caller-supplied {"vote": {"<id>": 2}}.

func metadataValue(meta map[string]interface{}, key string) (interface{}, bool) {
	if meta == nil {
		return nil, false
	}
	if value, ok := meta[key]; ok {
		return value, true
	}
	for k, value := range meta {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			return value, true
		}
	}
	return nil, false
}

// selectionFromMetadata extracts the order-level bundle selection recorded
// under the "vote" key, when present.
func selectionFromMetadata(meta map[string]interface{}) (map[string]int64, bool, error) {
	raw, ok := metadataValue(meta, "vote")
	if !ok || raw == nil {
		return nil, false, nil
	}
	rawMap, ok := raw.(map[string]interface{})
	if !ok {
		return nil, false, fmt.Errorf("payment metadata vote selection has unexpected shape %T", raw)
	}
	selection := make(map[string]int64, len(rawMap))
	for rawID, rawQuantity := range rawMap {
		quantity, ok := coerceQuantity(rawQuantity)
		if !ok {
			return nil, false, fmt.Errorf("payment metadata vote quantity %v is not numeric", rawQuantity)
		}
		selection[normalizeBundleKey(rawID)] = quantity
	}
	return selection, true, nil
}

// bundleLinesFromMetadata extracts the per-line purchase recorded under the
// "bundles" key (manual reconciliation path).
func bundleLinesFromMetadata(meta map[string]interface{}) ([]domain.PaymentBundleLine, bool, error) {
	raw, ok := metadataValue(meta, "bundles")
	if !ok || raw == nil {
		return nil, false, nil
	}
	rawList, ok := raw.([]interface{})
	if !ok {
		return nil, false, fmt.Errorf("payment metadata bundles has unexpected shape %T", raw)
	}

	lines := make([]domain.PaymentBundleLine, 0, len(rawList))
	for _, rawLine := range rawList {
		lineMap, ok := rawLine.(map[string]interface{})
		if !ok {
			return nil, false, fmt.Errorf("payment metadata bundle line has unexpected shape %T", rawLine)
		}
		var line domain.PaymentBundleLine
		if value, ok := metadataValue(lineMap, "bundle_id"); ok {
			line.BundleID = strings.TrimSpace(fmt.Sprintf("%v", value))
		}
		if line.BundleID == "" {
			return nil, false, fmt.Errorf("payment metadata bundle line is missing bundle_id")
		}
		if value, ok := metadataValue(lineMap, "quantity"); ok {
			quantity, numeric := coerceQuantity(value)
			if !numeric {
				return nil, false, fmt.Errorf("payment metadata bundle quantity %v is not numeric", value)
			}
			line.Quantity = quantity
		}
		if value, ok := metadataValue(lineMap, "discount_code"); ok && value != nil {
			line.DiscountCode = strings.TrimSpace(fmt.Sprintf("%v", value))
		}
		lines = append(lines, line)
	}
	return lines, true, nil
}

// discountCodeFromMetadata extracts the order-level promo code, if any.
func discountCodeFromMetadata(meta map[string]interface{}) string {
	for _, key := range []string{"discount_code", "promo_code"} {
		if value, ok := metadataValue(meta, key); ok && value != nil {
			return strings.TrimSpace(fmt.Sprintf("%v", value))
		}
	}
	return ""
}

// selectionsEqual compares two bundle-id -> quantity mappings independent of
// ordering and key casing.
func selectionsEqual(a, b map[string]int64) bool {
	if len(a) != len(b) {
		return false
	}
	normalized := make(map[string]int64, len(b))
	for rawID, quantity := range b {
		normalized[normalizeBundleKey(rawID)] = quantity
	}
	for rawID, quantity := range a {
		got, ok := normalized[normalizeBundleKey(rawID)]
		if !ok || got != quantity {
			return false
		}
	}
	return true
}

func normalizeBundleKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func coerceQuantity(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
