package schema

import (
	"fmt"
	"strconv"
	"time"
)

// CoerceText renders a record value for a Text field.
// Integers are rendered in decimal; nil yields ok=false.
func CoerceText(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case time.Time:
		return x.Format(time.RFC3339), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}

// CoerceNumber renders a record value for a Numeric field.
func CoerceNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// KeyString renders a unique key value in its canonical text form.
// The canonical form is also the document identity in the index.
func KeyString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", fmt.Errorf("unique key value is nil")
	case string:
		if x == "" {
			return "", fmt.Errorf("unique key value is empty")
		}
		return x, nil
	case []byte:
		return KeyString(string(x))
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		if x != float64(int64(x)) {
			return "", fmt.Errorf("unique key value %v is not an integer", x)
		}
		return strconv.FormatInt(int64(x), 10), nil
	default:
		return fmt.Sprint(x), nil
	}
}

// ParseKey converts a canonical key string back to the key's value type.
func (f Field) ParseKey(s string) (any, error) {
	if !f.NumericKey {
		return s, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse numeric key %q: %w", s, err)
	}
	return n, nil
}
