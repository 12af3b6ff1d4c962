package value

import "strconv"

// Render produces the textual form of v as it crosses the boundary:
// numbers in shortest round-trip notation, booleans as "true"/"false",
// strings verbatim, null as "null". Composites render as the fixed
// placeholders "[array]" and "{object}" rather than recursing.
func Render(v Value) string {
	return string(AppendRender(nil, v))
}

// AppendRender appends the rendering of v to dst and returns the extended
// slice.
func AppendRender(dst []byte, v Value) []byte {
	switch val := v.(type) {
	case Number:
		return strconv.AppendFloat(dst, float64(val), 'g', -1, 64)
	case Bool:
		if val {
			return append(dst, "true"...)
		}
		return append(dst, "false"...)
	case String:
		return append(dst, val...)
	case Array:
		return append(dst, "[array]"...)
	case Object:
		return append(dst, "{object}"...)
	default:
		return append(dst, "null"...)
	}
}
