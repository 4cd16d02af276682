// Package scene defines the neutral, strongly-typed elements emitted while
// translating an imported scene graph.
package scene

import "fmt"

// Vec3 is a 3-component real vector.
type Vec3 [3]float64

// AttributeKind classifies the attribute carried by a scene node.
type AttributeKind int

const (
	AttributeNone AttributeKind = iota
	AttributeMarker
	AttributeSkeleton
	AttributeMesh
	AttributeNurbs
	AttributePatch
	AttributeCamera
	AttributeLight
	AttributeLODGroup
	AttributeOther
)

var attributeNames = [...]string{
	AttributeNone:     "none",
	AttributeMarker:   "marker",
	AttributeSkeleton: "skeleton",
	AttributeMesh:     "mesh",
	AttributeNurbs:    "nurbs",
	AttributePatch:    "patch",
	AttributeCamera:   "camera",
	AttributeLight:    "light",
	AttributeLODGroup: "lodgroup",
	AttributeOther:    "other",
}

func (k AttributeKind) String() string {
	if k < 0 || int(k) >= len(attributeNames) {
		return fmt.Sprintf("AttributeKind(%d)", int(k))
	}
	return attributeNames[k]
}

// Transform is a node's geometric pivot transform. It is the baked offset
// applied to the node's geometry, not its animatable local transform.
type Transform struct {
	Position Vec3 `json:"position"`
	Rotation Vec3 `json:"rotation"` // Euler angles, degrees.
	Scale    Vec3 `json:"scale"`
}

// ProjectionKind is a camera projection.
type ProjectionKind int

const (
	Perspective ProjectionKind = iota
	Orthogonal
)

func (p ProjectionKind) String() string {
	switch p {
	case Perspective:
		return "perspective"
	case Orthogonal:
		return "orthogonal"
	}
	return fmt.Sprintf("ProjectionKind(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p ProjectionKind) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *ProjectionKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "perspective":
		*p = Perspective
	case "orthogonal":
		*p = Orthogonal
	default:
		return fmt.Errorf("scene: unknown projection %q", b)
	}
	return nil
}

// CameraParams holds the parameters read from a camera node.
type CameraParams struct {
	InterestPosition Vec3           `json:"interest_position"`
	UpVector         Vec3           `json:"up_vector"`
	Roll             float64        `json:"roll"` // Degrees.
	Projection       ProjectionKind `json:"projection"`
}

// LightKind is a light type.
type LightKind int

const (
	PointLight LightKind = iota
	DirectionalLight
	SpotLight
)

func (k LightKind) String() string {
	switch k {
	case PointLight:
		return "point"
	case DirectionalLight:
		return "directional"
	case SpotLight:
		return "spot"
	}
	return fmt.Sprintf("LightKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k LightKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *LightKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "point":
		*k = PointLight
	case "directional":
		*k = DirectionalLight
	case "spot":
		*k = SpotLight
	default:
		return fmt.Errorf("scene: unknown light kind %q", b)
	}
	return nil
}

// LightParams holds the parameters read from a light node.
type LightParams struct {
	Kind LightKind `json:"kind"`
	// CastLight is the light's CastLight flag, passed through as-is.
	CastLight  bool    `json:"cast_light"`
	Color      Vec3    `json:"color"` // Normalized RGB.
	Intensity  float64 `json:"intensity"`
	OuterAngle float64 `json:"outer_angle"` // Spot cone, degrees.
	Fog        float64 `json:"fog"`
}

// Mesh is the payload of a mesh emission. No built-in extractor fills it;
// its contents are defined by the caller-supplied mesh extractor.
type Mesh struct {
	Vertices []Vec3 `json:"vertices,omitempty"`
	Indices  []int  `json:"indices,omitempty"`
}
