package fbx

import "fmt"

// PropertyValue is one P record of a Properties70 block.
type PropertyValue struct {
	Type   string
	Label  string
	Flags  string
	Values []Property
}

// Properties holds an object's Properties70 block, keyed by property name.
type Properties map[string]PropertyValue

// parseProperties70 reads the Properties70 child of e. Malformed P records
// are skipped and described in the returned warnings.
func parseProperties70(e *Element) (Properties, []string) {
	props := Properties{}
	block := e.Child("Properties70")
	if block == nil {
		return props, nil
	}
	var warnings []string
	for i, p := range block.ChildrenNamed("P") {
		var head [4]string
		ok := len(p.Properties) >= len(head)
		for j := 0; ok && j < len(head); j++ {
			head[j], ok = p.Properties[j].Str()
		}
		if !ok {
			warnings = append(warnings, fmt.Sprintf("malformed P record #%d", i))
			continue
		}
		props[head[0]] = PropertyValue{
			Type:   head[1],
			Label:  head[2],
			Flags:  head[3],
			Values: p.Properties[len(head):],
		}
	}
	return props, warnings
}

// Has reports whether the property is present.
func (p Properties) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// Float returns the numeric property name, or def when it is absent.
func (p Properties) Float(name string, def float64) (float64, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}
	if len(v.Values) != 1 {
		return def, fmt.Errorf("fbx: property %q: want 1 value, have %d", name, len(v.Values))
	}
	f, ok := v.Values[0].Float()
	if !ok {
		return def, fmt.Errorf("fbx: property %q: not a number", name)
	}
	return f, nil
}

// Int returns the integer (or enum) property name, or def when it is absent.
func (p Properties) Int(name string, def int64) (int64, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}
	if len(v.Values) != 1 {
		return def, fmt.Errorf("fbx: property %q: want 1 value, have %d", name, len(v.Values))
	}
	n, ok := v.Values[0].Int()
	if !ok {
		return def, fmt.Errorf("fbx: property %q: not an integer", name)
	}
	return n, nil
}

// Bool returns the boolean property name, or def when it is absent.
func (p Properties) Bool(name string, def bool) (bool, error) {
	n, err := p.Int(name, 0)
	if err != nil || !p.Has(name) {
		return def, err
	}
	return n != 0, nil
}

// Vec3 returns the 3-component property name (Vector3D, Lcl *, ColorRGB,
// ...), or def when it is absent.
func (p Properties) Vec3(name string, def [3]float64) ([3]float64, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}
	if len(v.Values) != 3 {
		return def, fmt.Errorf("fbx: property %q: want 3 values, have %d", name, len(v.Values))
	}
	var out [3]float64
	for i, x := range v.Values {
		f, ok := x.Float()
		if !ok {
			return def, fmt.Errorf("fbx: property %q: component %d is not a number", name, i)
		}
		out[i] = f
	}
	return out, nil
}
