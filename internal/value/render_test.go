package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"integer valued number", Number(42), "42"},
		{"fractional number", Number(3.14), "3.14"},
		{"negative number", Number(-0.5), "-0.5"},
		{"zero", Number(0), "0"},
		{"large number uses exponent", Number(1e21), "1e+21"},
		{"shortest round trip", Number(0.1), "0.1"},
		{"true", Bool(true), "true"},
		{"false", Bool(false), "false"},
		{"string verbatim", String("hello world"), "hello world"},
		{"empty string", String(""), ""},
		{"string with quotes kept as is", String(`say "hi"`), `say "hi"`},
		{"null", Null{}, "null"},
		{"array placeholder", Array{Number(1), Number(2)}, "[array]"},
		{"empty array placeholder", Array{}, "[array]"},
		{"object placeholder", Object{"k": Null{}}, "{object}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.v))
		})
	}
}

func TestAppendRender(t *testing.T) {
	buf := []byte("x=")
	buf = AppendRender(buf, Number(7))
	assert.Equal(t, "x=7", string(buf))

	buf = AppendRender(buf, String("!"))
	assert.Equal(t, "x=7!", string(buf))
}

func TestRenderNilValue(t *testing.T) {
	// A nil interface renders as null rather than panicking.
	assert.Equal(t, "null", Render(nil))
}
