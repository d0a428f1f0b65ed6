package provider

import (
	"encoding/json"
	"fmt"
)

// DecodeObject parses a JSON object response, unwrapping one level of
// envelope ({"data": {...}}) when the body nests the object under one of
// the given keys.
func DecodeObject(body []byte, envelopeKeys ...string) (map[string]interface{}, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	for _, key := range envelopeKeys {
		if inner, ok := m[key].(map[string]interface{}); ok {
			return inner, nil
		}
	}
	return m, nil
}

// DecodeList parses a JSON response that is either a bare array of objects
// or an object wrapping the array under one of the given keys
// ({"data": [...]}, {"items": [...]}).
func DecodeList(body []byte, envelopeKeys ...string) ([]map[string]interface{}, error) {
	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	switch v := raw.(type) {
	case []interface{}:
		return listOfMaps(v)
	case map[string]interface{}:
		for _, key := range envelopeKeys {
			if arr, ok := v[key].([]interface{}); ok {
				return listOfMaps(arr)
			}
		}
		return nil, fmt.Errorf("response object has no list under %v", envelopeKeys)
	default:
		return nil, fmt.Errorf("response is neither an array nor an object")
	}
}

func listOfMaps(arr []interface{}) ([]map[string]interface{}, error) {
	out := make([]map[string]interface{}, 0, len(arr))
	for i, item := range arr {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("list element %d is not an object", i)
		}
		out = append(out, m)
	}
	return out, nil
}
