package object

import (
	"time"

	"github.com/spf13/cast"
)

// FromNative converts plain Go values into script values. It reports false
// for values with no script counterpart, which callers wrap as NativeObject.
func FromNative(v any) (Object, bool) {
	switch val := v.(type) {
	case nil:
		return NIL, true
	case Object:
		return val, true
	case bool:
		return NativeBool(val), true
	case string:
		return &String{Value: val}, true
	case []byte:
		return &String{Value: string(val)}, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		i, err := cast.ToInt64E(val)
		if err != nil {
			return nil, false
		}
		return &Integer{Value: i}, true
	case float32, float64:
		f, err := cast.ToFloat64E(val)
		if err != nil {
			return nil, false
		}
		return &Float{Value: f}, true
	case []any:
		arr := NewArray()
		for _, e := range val {
			o, ok := FromNative(e)
			if !ok {
				return nil, false
			}
			arr.Elements = append(arr.Elements, o)
		}
		return arr, true
	case map[string]any:
		h := NewHash()
		for k, e := range val {
			o, ok := FromNative(e)
			if !ok {
				return nil, false
			}
			h.Set(&String{Value: k}, o)
		}
		return h, true
	}
	return nil, false
}

// ToNative converts script values into plain Go values for host APIs such
// as database drivers.
func ToNative(obj Object) any {
	switch o := obj.(type) {
	case *Nil:
		return nil
	case *Boolean:
		return o.Value
	case *Integer:
		return o.Value
	case *Float:
		return o.Value
	case *String:
		return o.Value
	case *Symbol:
		return o.Name
	case *Array:
		out := make([]any, len(o.Elements))
		for i, e := range o.Elements {
			out[i] = ToNative(e)
		}
		return out
	case *Hash:
		out := make(map[string]any, o.Len())
		for _, pair := range o.Entries() {
			out[cast.ToString(ToNative(pair.Key))] = ToNative(pair.Value)
		}
		return out
	case *NativeObject:
		if t, ok := o.Value.(time.Time); ok {
			return t
		}
		return o.Value
	}
	return obj
}
