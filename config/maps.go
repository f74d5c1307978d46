package config

import (
	"fmt"
	"strings"
)

func searchMap(source map[string]interface{}, path []string) interface{} {
	if len(path) == 0 || (len(path) == 1 && path[0] == "") {
		return source
	}
	next, ok := source[path[0]]
	if !ok {
		return nil
	}
	if len(path) == 1 {
		return next
	}
	if m, ok := next.(map[string]interface{}); ok {
		return searchMap(m, path[1:])
	}
	return nil
}

func setKeyInMap(m map[string]interface{}, path []string, value interface{}) {
	for _, k := range path[:len(path)-1] {
		sub, ok := m[k].(map[string]interface{})
		if !ok {
			sub = make(map[string]interface{})
			m[k] = sub
		}
		m = sub
	}
	m[path[len(path)-1]] = value
}

// mergeMaps merges src into dst, src winning on conflicts.
func mergeMaps(dst, src map[string]interface{}) {
	for k, sv := range src {
		sm, sIsMap := sv.(map[string]interface{})
		dm, dIsMap := dst[k].(map[string]interface{})
		if sIsMap && dIsMap {
			mergeMaps(dm, sm)
			continue
		}
		dst[k] = sv
	}
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	c := make(map[string]interface{}, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]interface{}); ok {
			c[k] = deepCopyMap(sub)
		} else {
			c[k] = v
		}
	}
	return c
}

func flattenKeys(m map[string]interface{}, prefix, delim string) []string {
	var keys []string
	for k, v := range m {
		full := k
		if prefix != "" {
			full = prefix + delim + k
		}
		if sub, ok := v.(map[string]interface{}); ok {
			keys = append(keys, flattenKeys(sub, full, delim)...)
		} else {
			keys = append(keys, full)
		}
	}
	return keys
}

func lowerKeys(m map[string]interface{}) map[string]interface{} {
	for k, v := range m {
		lk := strings.ToLower(k)
		if lk != k {
			delete(m, k)
		}
		m[lk] = normalizeValue(v)
	}
	return m
}

// normalizeValue turns the map[interface{}]interface{} of yaml.v2 into
// map[string]interface{}.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, sv := range t {
			m[strings.ToLower(fmt.Sprint(k))] = normalizeValue(sv)
		}
		return m
	case map[string]interface{}:
		return lowerKeys(t)
	case []interface{}:
		for i := range t {
			t[i] = normalizeValue(t[i])
		}
		return t
	}
	return v
}
