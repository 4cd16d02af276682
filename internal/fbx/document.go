package fbx

import (
	"fmt"
	"strings"
)

// RootName is the name of the implicit root node of every scene.
const RootName = "RootNode"

// objectHead reads the id, name and subclass of an Objects entry.
func objectHead(e *Element) (id int64, name, class, subclass string, ok bool) {
	if len(e.Properties) < 3 {
		return
	}
	if id, ok = e.Properties[0].Int(); !ok {
		return
	}
	var full string
	if full, ok = e.Properties[1].Str(); !ok {
		return
	}
	if subclass, ok = e.Properties[2].Str(); !ok {
		return
	}
	name, class = splitName(full)
	return
}

// splitName splits a binary "Name\x00\x01Class" or ASCII "Class::Name"
// object name.
func splitName(full string) (name, class string) {
	if i := strings.Index(full, "\x00\x01"); i >= 0 {
		return full[:i], full[i+2:]
	}
	if i := strings.Index(full, "::"); i >= 0 {
		return full[i+2:], full[:i]
	}
	return full, ""
}

type docBuilder struct {
	models   map[int64]*Node
	attrs    map[int64]*NodeAttribute
	others   map[int64]bool
	parented map[int64]bool
	warnings []string
}

func (b *docBuilder) warn(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

// buildScene turns the top-level elements of a document into a node
// hierarchy under an implicit root. Inconsistent input that can be skipped
// is reported in the warnings; only a document without Objects fails.
func buildScene(elems []*Element) (root *Node, count int, warnings []string, err error) {
	var objects, connections *Element
	for _, e := range elems {
		switch e.Name {
		case "Objects":
			objects = e
		case "Connections":
			connections = e
		}
	}
	if objects == nil {
		return nil, 0, nil, newErr("document has no Objects section")
	}

	b := &docBuilder{
		models:   map[int64]*Node{},
		attrs:    map[int64]*NodeAttribute{},
		others:   map[int64]bool{},
		parented: map[int64]bool{},
	}
	root = &Node{ID: 0, Name: RootName, Props: Properties{}}
	b.collect(objects)
	if connections == nil {
		b.warn("document has no Connections section")
	} else {
		b.connect(root, connections)
	}

	count = countNodes(root)
	if n := len(b.models) + 1 - count; n > 0 {
		b.warn("%d model(s) are not reachable from the root", n)
	}
	return root, count, b.warnings, nil
}

func (b *docBuilder) collect(objects *Element) {
	for i, e := range objects.Children {
		id, name, _, subclass, ok := objectHead(e)
		if !ok {
			b.warn("malformed %s object #%d", e.Name, i)
			continue
		}
		if id == 0 || b.models[id] != nil || b.attrs[id] != nil || b.others[id] {
			b.warn("duplicate or reserved object id %d (%s %q)", id, e.Name, name)
			continue
		}
		props, pw := parseProperties70(e)
		for _, w := range pw {
			b.warn("%s %q: %s", e.Name, name, w)
		}
		switch e.Name {
		case "Model":
			b.models[id] = &Node{ID: id, Name: name, Props: props}
		case "NodeAttribute", "Geometry":
			b.attrs[id] = &NodeAttribute{
				ID:       id,
				Name:     name,
				Class:    e.Name,
				Subclass: subclass,
				Type:     ParseAttributeType(subclass),
				Props:    props,
				Element:  e,
			}
		default:
			b.others[id] = true
		}
	}
}

func (b *docBuilder) connect(root *Node, connections *Element) {
	for i, c := range connections.ChildrenNamed("C") {
		if len(c.Properties) < 3 {
			b.warn("malformed connection #%d", i)
			continue
		}
		kind, ok1 := c.Properties[0].Str()
		child, ok2 := c.Properties[1].Int()
		parent, ok3 := c.Properties[2].Int()
		if !ok1 || !ok2 || !ok3 {
			b.warn("malformed connection #%d", i)
			continue
		}
		if kind != "OO" {
			continue
		}

		if m := b.models[child]; m != nil {
			var p *Node
			if parent == 0 {
				p = root
			} else {
				p = b.models[parent]
			}
			switch {
			case p == nil:
				b.warn("model %q is connected to unknown parent %d", m.Name, parent)
			case b.parented[child]:
				b.warn("model %q has more than one parent; keeping the first", m.Name)
			default:
				b.parented[child] = true
				p.children = append(p.children, m)
			}
			continue
		}

		if a := b.attrs[child]; a != nil {
			m := b.models[parent]
			switch {
			case m == nil:
				if !b.others[parent] {
					b.warn("%s %q is connected to unknown model %d", a.Class, a.Name, parent)
				}
			case m.attr != nil:
				b.warn("model %q has more than one attribute; keeping the first", m.Name)
			default:
				m.attr = a
			}
			continue
		}

		if !b.others[child] {
			b.warn("connection #%d references unknown object %d", i, child)
		}
	}
}

func countNodes(n *Node) int {
	count := 1
	for _, c := range n.children {
		count += countNodes(c)
	}
	return count
}
