package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// accessor 字段访问路径，如 location.latitude
type accessor []string

// chain 按顺序尝试的访问路径，第一个存在且非空的值生效
type chain []accessor

// fields 由 "a", "b.c" 形式的路径构造 chain
func fields(paths ...string) chain {
	c := make(chain, 0, len(paths))
	for _, p := range paths {
		c = append(c, accessor(strings.Split(p, ".")))
	}
	return c
}

func (a accessor) String() string {
	return strings.Join(a, ".")
}

// get 按路径取值；中间节点不是对象时视为不存在
func (a accessor) get(rec map[string]any) (any, bool) {
	var cur any = rec
	for _, key := range a {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	if isBlank(cur) {
		return nil, false
	}
	return cur, true
}

// first 返回第一个命中的值及其路径
func (c chain) first(rec map[string]any) (any, string, bool) {
	for _, a := range c {
		if v, ok := a.get(rec); ok {
			return v, a.String(), true
		}
	}
	return nil, "", false
}

// str 取字符串值，数字会被格式化
func (c chain) str(rec map[string]any) (string, bool) {
	v, _, ok := c.first(rec)
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case json.Number:
		return val.String(), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

// strOr 取字符串值，不存在时返回默认值
func (c chain) strOr(rec map[string]any, def string) string {
	if s, ok := c.str(rec); ok {
		return s
	}
	return def
}

// float 取数值；字符串形式的数字会被解析。
// 返回值 present 表示字段存在，err 表示存在但无法解析为有限数值
func (c chain) float(rec map[string]any) (f float64, present bool, err error) {
	v, path, ok := c.first(rec)
	if !ok {
		return 0, false, nil
	}
	f, err = toFloat(v)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", path, err)
	}
	return f, true, nil
}

// floatOr 取数值，不存在或无法解析时返回默认值
func (c chain) floatOr(rec map[string]any, def float64) float64 {
	f, present, err := c.float(rec)
	if !present || err != nil {
		return def
	}
	return f
}

// floatPtr 取可选数值
func (c chain) floatPtr(rec map[string]any) *float64 {
	f, present, err := c.float(rec)
	if !present || err != nil {
		return nil
	}
	return &f
}

// intOr 取整数值
func (c chain) intOr(rec map[string]any, def int) int {
	f, present, err := c.float(rec)
	if !present || err != nil {
		return def
	}
	return int(f)
}

// boolOr 取布尔值，接受 true/false 字符串
func (c chain) boolOr(rec map[string]any, def bool) bool {
	v, _, ok := c.first(rec)
	if !ok {
		return def
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return b
		}
	}
	return def
}

// list 取数组值
func (c chain) list(rec map[string]any) ([]any, bool) {
	for _, a := range c {
		if v, ok := a.get(rec); ok {
			if arr, ok := v.([]any); ok {
				return arr, true
			}
		}
	}
	return nil, false
}

// object 取对象值
func (c chain) object(rec map[string]any) (map[string]any, bool) {
	for _, a := range c {
		if v, ok := a.get(rec); ok {
			if obj, ok := v.(map[string]any); ok {
				return obj, true
			}
		}
	}
	return nil, false
}

// strings 取字符串数组，忽略非字符串元素
func (c chain) strings(rec map[string]any) []string {
	arr, ok := c.list(rec)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// toFloat 将 JSON 值转换为有限的 float64
func toFloat(v any) (float64, error) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", val.String())
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", val)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite number")
	}
	return f, nil
}

// isBlank nil 与空白字符串视为不存在
func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	}
	return false
}
