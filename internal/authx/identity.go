package authx

import (
	"fmt"
	"strconv"
)

// Identity represents the normalized external identity returned by AuthX.
// It contains facts only, no decisions: user creation, linking, and session
// management happen elsewhere.
type Identity struct {
	ID       string         // provider-scoped user identifier, "" when absent
	Name     string         // display name, "" when absent
	Nickname string         // short handle, "" when absent
	Email    string         // email as asserted by AuthX
	Avatar   string         // avatar URL, "" when absent
	Raw      map[string]any // full profile payload, verbatim
}

// StringValue normalizes a raw profile value to its string form. JSON
// numbers arrive as float64; integral values render without a fraction.
// Unsupported types normalize to "".
func StringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case fmt.Stringer:
		return val.String()
	default:
		return ""
	}
}
