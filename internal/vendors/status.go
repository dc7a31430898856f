package vendors

import (
	"fmt"
	"strconv"
	"strings"

	"mediacore/internal/domain"
)

// StatusTable maps one vendor's status vocabulary (string enums, numeric
// codes or boolean flags) onto the canonical task statuses. Keys are
// compared lowercased; numeric and boolean payload values are rendered to
// their string form before lookup.
type StatusTable map[string]domain.TaskStatus

// Map translates a raw vendor status value. Unknown values default to
// running: vendors add intermediate states more often than terminal ones.
func (t StatusTable) Map(raw any) domain.TaskStatus {
	var key string
	switch v := raw.(type) {
	case nil:
		return domain.TaskStatusRunning
	case string:
		key = strings.ToLower(strings.TrimSpace(v))
	case bool:
		key = fmt.Sprintf("%t", v)
	case float64:
		// JSON numbers decode as float64; vendors use small integer codes.
		key = fmt.Sprintf("%d", int(v))
	default:
		key = strings.ToLower(fmt.Sprint(v))
	}
	if status, ok := t[key]; ok {
		return status
	}
	return domain.TaskStatusRunning
}

// lookupField walks dotted paths ("data.task_id", "videos.0.url") through a
// decoded JSON value and returns the first non-nil hit. Numeric path parts
// index into arrays.
func lookupField(payload map[string]any, paths ...string) any {
	for _, p := range paths {
		node := any(payload)
		found := true
		for _, part := range strings.Split(p, ".") {
			switch v := node.(type) {
			case map[string]any:
				var ok bool
				if node, ok = v[part]; !ok {
					found = false
				}
			case []any:
				idx, err := strconv.Atoi(part)
				if err != nil || idx < 0 || idx >= len(v) {
					found = false
					break
				}
				node = v[idx]
			default:
				found = false
			}
			if !found {
				break
			}
		}
		if found && node != nil {
			return node
		}
	}
	return nil
}

// lookupString is lookupField for string-valued fields; numbers are
// rendered so numeric task ids survive.
func lookupString(payload map[string]any, paths ...string) string {
	switch v := lookupField(payload, paths...).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
