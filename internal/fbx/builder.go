package fbx

import (
	"bytes"
	"io"
	"os"
)

// RootID is the object id of the implicit root node in Connections.
const RootID int64 = 0

// Builder assembles FBX documents made of Model, NodeAttribute and Geometry
// objects and their OO connections.
type Builder struct {
	nextID      int64
	objects     []*Element
	connections []*Element
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{nextID: 1000}
}

// P builds a Properties70 P record.
func P(name, typ, label, flags string, values ...Property) *Element {
	props := append([]Property{String(name), String(typ), String(label), String(flags)}, values...)
	return &Element{Name: "P", Properties: props}
}

// PVector builds a Vector3D P record.
func PVector(name string, x, y, z float64) *Element {
	return P(name, "Vector3D", "Vector", "", Float64(x), Float64(y), Float64(z))
}

// PLcl builds an animatable "Lcl *" P record.
func PLcl(name string, x, y, z float64) *Element {
	return P(name, name, "", "A", Float64(x), Float64(y), Float64(z))
}

// PNumber builds an animatable Number P record.
func PNumber(name string, v float64) *Element {
	return P(name, "Number", "", "A", Float64(v))
}

// PEnum builds an enum P record.
func PEnum(name string, v int32) *Element {
	return P(name, "enum", "", "", Int32(v))
}

// PBool builds a bool P record.
func PBool(name string, v bool) *Element {
	var n int32
	if v {
		n = 1
	}
	return P(name, "bool", "", "", Int32(n))
}

// PColor builds a ColorRGB P record.
func PColor(name string, r, g, b float64) *Element {
	return P(name, "ColorRGB", "Color", "A", Float64(r), Float64(g), Float64(b))
}

func (b *Builder) id() int64 {
	b.nextID++
	return b.nextID
}

func (b *Builder) object(class, name, subclass string, extra []*Element) int64 {
	id := b.id()
	e := &Element{
		Name:       class,
		Properties: []Property{Int64(id), String(name + "\x00\x01" + class), String(subclass)},
	}
	p70 := &Element{Name: "Properties70"}
	for _, x := range extra {
		if x.Name == "P" {
			p70.Children = append(p70.Children, x)
		} else {
			e.Children = append(e.Children, x)
		}
	}
	if len(p70.Children) > 0 {
		e.Children = append(e.Children, p70)
	}
	b.objects = append(b.objects, e)
	return id
}

// Model adds a Model under parent (RootID for the root) and returns its
// id. P records in extra go to its Properties70 block; other elements
// become children of the object record.
func (b *Builder) Model(parent int64, name, subclass string, extra ...*Element) int64 {
	id := b.object("Model", name, subclass, extra)
	b.Connect(id, parent)
	return id
}

// NodeAttribute adds a NodeAttribute of the given subclass to model.
func (b *Builder) NodeAttribute(model int64, subclass string, extra ...*Element) int64 {
	id := b.object("NodeAttribute", "", subclass, extra)
	b.Connect(id, model)
	return id
}

// Geometry adds a Geometry of the given subclass to model.
func (b *Builder) Geometry(model int64, name, subclass string, extra ...*Element) int64 {
	id := b.object("Geometry", name, subclass, extra)
	b.Connect(id, model)
	return id
}

// Object adds a raw object record.
func (b *Builder) Object(e *Element) {
	b.objects = append(b.objects, e)
}

// Connect adds an OO connection from child to parent.
func (b *Builder) Connect(child, parent int64) {
	b.connections = append(b.connections, &Element{
		Name:       "C",
		Properties: []Property{String("OO"), Int64(child), Int64(parent)},
	})
}

// Elements returns the top-level elements of the document.
func (b *Builder) Elements(version uint32) []*Element {
	return []*Element{
		{
			Name: "FBXHeaderExtension",
			Children: []*Element{
				{Name: "FBXVersion", Properties: []Property{Int32(int32(version))}},
				{Name: "Creator", Properties: []Property{String("SceneBridge")}},
			},
		},
		{Name: "Objects", Children: b.objects},
		{Name: "Connections", Children: b.connections},
	}
}

// Bytes encodes the document as a binary FBX file.
func (b *Builder) Bytes(version uint32) ([]byte, error) {
	var buf bytes.Buffer
	if err := b.Write(&buf, version); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes the document to w.
func (b *Builder) Write(w io.Writer, version uint32) error {
	return Encode(w, version, b.Elements(version))
}

// WriteFile encodes the document to the named file.
func (b *Builder) WriteFile(path string, version uint32) error {
	data, err := b.Bytes(version)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
