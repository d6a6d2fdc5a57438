package server

import (
	"fmt"
	"strings"

	"github.com/mj1618/list-import/internal/workflow"
)

func stringParam(params map[string]interface{}, key, defaultVal string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return defaultVal
}

func intParam(params map[string]interface{}, key string, defaultVal int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case int64:
			return int(n)
		}
	}
	return defaultVal
}

func boolParam(params map[string]interface{}, key string, defaultVal bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// identifiersParam accepts either a JSON array of strings or free text
// delimited by commas and newlines.
func identifiersParam(params map[string]interface{}, key string) ([]string, error) {
	v, ok := params[key]
	if !ok {
		return nil, fmt.Errorf("%s parameter is required", key)
	}
	switch list := v.(type) {
	case string:
		return workflow.ParseList(list), nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", key, i)
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return list, nil
	default:
		return nil, fmt.Errorf("%s must be a string or an array of strings, got %s", key, strings.TrimPrefix(fmt.Sprintf("%T", v), "[]"))
	}
}
