package numbers

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// MT4/MT5 bridges are inconsistent about scalar encoding: prices and volumes
// arrive as JSON numbers from some builds and as quoted strings from others.
// These helpers normalize either form.

// ExtractFloat converts common scalar types into float64.
func ExtractFloat(val any) (float64, error) {
	switch v := val.(type) {
	case nil:
		return 0, fmt.Errorf("nil value")
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		if v == "" {
			return 0, fmt.Errorf("empty string")
		}
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("unsupported float type %T", val)
	}
}

// ExtractInt converts common scalar types into int64. Bridge timestamps are
// unix seconds and fit int64 exactly only when they avoid the float64 path,
// hence the json.Number preference at the call sites.
func ExtractInt(val any) (int64, error) {
	switch v := val.(type) {
	case nil:
		return 0, fmt.Errorf("nil value")
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		if v == "" {
			return 0, fmt.Errorf("empty string")
		}
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported int type %T", val)
	}
}

// ExtractTicket normalizes a broker ticket identifier to its string form.
// Tickets are opaque and may exceed the float64-safe integer range, so a
// numeric form is only accepted when it survives the round trip losslessly.
func ExtractTicket(val any) (string, error) {
	switch v := val.(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("empty ticket")
		}
		return v, nil
	case json.Number:
		return v.String(), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		n := int64(v)
		if float64(n) != v {
			return "", fmt.Errorf("ticket %v not representable as integer", v)
		}
		return strconv.FormatInt(n, 10), nil
	default:
		return "", fmt.Errorf("unsupported ticket type %T", val)
	}
}
