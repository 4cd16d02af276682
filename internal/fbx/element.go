package fbx

import "fmt"

// Element is a node record of an FBX document.
type Element struct {
	Name       string
	Properties []Property
	Children   []*Element
}

// Child returns the first child named name, or nil.
func (e *Element) Child(name string) *Element {
	for _, c := range e.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every child named name, in file order.
func (e *Element) ChildrenNamed(name string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Property type codes of the binary encoding.
const (
	TypeInt16      = 'Y'
	TypeBool       = 'C'
	TypeInt32      = 'I'
	TypeFloat32    = 'F'
	TypeFloat64    = 'D'
	TypeInt64      = 'L'
	TypeString     = 'S'
	TypeRaw        = 'R'
	TypeFloat32Arr = 'f'
	TypeFloat64Arr = 'd'
	TypeInt64Arr   = 'l'
	TypeInt32Arr   = 'i'
	TypeBoolArr    = 'b'
)

// Property is a typed element property. Value holds one of int16, bool,
// int32, float32, float64, int64, string, []byte, []float32, []float64,
// []int64, []int32 or []bool, matching Type.
type Property struct {
	Type  byte
	Value any
}

// Int16 and the other constructors build properties of the matching type.
func Int16(v int16) Property { return Property{TypeInt16, v} }
func Bool(v bool) Property { return Property{TypeBool, v} }
func Int32(v int32) Property { return Property{TypeInt32, v} }
func Float32(v float32) Property { return Property{TypeFloat32, v} }
func Float64(v float64) Property { return Property{TypeFloat64, v} }
func Int64(v int64) Property { return Property{TypeInt64, v} }
func String(v string) Property { return Property{TypeString, v} }
func Raw(v []byte) Property { return Property{TypeRaw, v} }
func Float32s(v []float32) Property { return Property{TypeFloat32Arr, v} }
func Float64s(v []float64) Property { return Property{TypeFloat64Arr, v} }
func Int64s(v []int64) Property { return Property{TypeInt64Arr, v} }
func Int32s(v []int32) Property { return Property{TypeInt32Arr, v} }
func Bools(v []bool) Property { return Property{TypeBoolArr, v} }

// Float returns p as a float64 for any scalar numeric type.
func (p Property) Float() (float64, bool) {
	switch v := p.Value.(type) {
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// Int returns p as an int64 for any scalar integer or bool type.
func (p Property) Int() (int64, bool) {
	switch v := p.Value.(type) {
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Str returns p as a string.
func (p Property) Str() (string, bool) {
	s, ok := p.Value.(string)
	return s, ok
}

func (p Property) String() string {
	return fmt.Sprintf("%c:%v", p.Type, p.Value)
}
