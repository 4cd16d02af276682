package fbx

// AttributeType is the type of a node attribute.
type AttributeType int

const (
	AttrUnknown AttributeType = iota
	AttrNull
	AttrMarker
	AttrSkeleton
	AttrMesh
	AttrNurbs
	AttrNurbsCurve
	AttrNurbsSurface
	AttrPatch
	AttrCamera
	AttrCameraSwitcher
	AttrLight
	AttrLODGroup
	AttrShape
	AttrLine
	AttrBoundary
)

// Subclass names of NodeAttribute and Geometry objects.
var attributeTypes = map[string]AttributeType{
	"Null":           AttrNull,
	"Marker":         AttrMarker,
	"Root":           AttrSkeleton,
	"Limb":           AttrSkeleton,
	"LimbNode":       AttrSkeleton,
	"Effector":       AttrSkeleton,
	"Mesh":           AttrMesh,
	"Nurbs":          AttrNurbs,
	"NurbsCurve":     AttrNurbsCurve,
	"NurbsSurface":   AttrNurbsSurface,
	"Patch":          AttrPatch,
	"Camera":         AttrCamera,
	"CameraSwitcher": AttrCameraSwitcher,
	"Light":          AttrLight,
	"LodGroup":       AttrLODGroup,
	"Shape":          AttrShape,
	"Line":           AttrLine,
	"Boundary":       AttrBoundary,
}

// ParseAttributeType maps an object subclass name to an AttributeType.
func ParseAttributeType(subclass string) AttributeType {
	if t, ok := attributeTypes[subclass]; ok {
		return t
	}
	return AttrUnknown
}

// NodeAttribute is the NodeAttribute or Geometry object attached to a node.
type NodeAttribute struct {
	ID       int64
	Name     string
	Class    string
	Subclass string
	Type     AttributeType
	Props    Properties
	// Element is the raw object record, for readers of data not exposed
	// through Props (e.g. geometry arrays).
	Element *Element
}

// Node is a Model of the scene hierarchy.
type Node struct {
	ID       int64
	Name     string
	Props    Properties
	attr     *NodeAttribute
	children []*Node
}

// Attribute returns the node's attribute, or nil if it has none.
func (n *Node) Attribute() *NodeAttribute { return n.attr }

// ChildCount returns the number of children of n.
func (n *Node) ChildCount() int { return len(n.children) }

// Child returns the i-th child of n.
func (n *Node) Child(i int) *Node { return n.children[i] }

var unitScale = [3]float64{1, 1, 1}

// GeometricTranslation returns the node's geometric (pivot) translation.
func (n *Node) GeometricTranslation() ([3]float64, error) {
	return n.Props.Vec3("GeometricTranslation", [3]float64{})
}

// GeometricRotation returns the node's geometric (pivot) rotation.
func (n *Node) GeometricRotation() ([3]float64, error) {
	return n.Props.Vec3("GeometricRotation", [3]float64{})
}

// GeometricScaling returns the node's geometric (pivot) scaling.
func (n *Node) GeometricScaling() ([3]float64, error) {
	return n.Props.Vec3("GeometricScaling", unitScale)
}

// LocalTranslation returns the node's animatable local translation.
func (n *Node) LocalTranslation() ([3]float64, error) {
	return n.Props.Vec3("Lcl Translation", [3]float64{})
}

// LocalRotation returns the node's animatable local rotation.
func (n *Node) LocalRotation() ([3]float64, error) {
	return n.Props.Vec3("Lcl Rotation", [3]float64{})
}

// LocalScaling returns the node's animatable local scaling.
func (n *Node) LocalScaling() ([3]float64, error) {
	return n.Props.Vec3("Lcl Scaling", unitScale)
}

// Scene is an imported node hierarchy. It is owned by the Manager that
// created it until Destroy is called.
type Scene struct {
	mgr       *Manager
	name      string
	root      *Node
	nodes     int
	warnings  []string
	destroyed bool
}

// Name returns the name the scene was created with.
func (s *Scene) Name() string { return s.name }

// RootNode returns the implicit root of the hierarchy. It is nil until a
// file has been imported into the scene.
func (s *Scene) RootNode() *Node { return s.root }

// NodeCount returns the number of nodes reachable from the root, root
// included.
func (s *Scene) NodeCount() int { return s.nodes }

// Warnings returns the problems found while building the hierarchy.
func (s *Scene) Warnings() []string { return s.warnings }

// Destroy releases the scene. It is safe to call more than once.
func (s *Scene) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.root = nil
	s.mgr.release(s)
}

func (s *Scene) destroy() { s.Destroy() }
