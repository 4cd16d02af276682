package loader

import (
	"fmt"

	"github.com/AaronLay10/SceneBridge/internal/fbx"
	"github.com/AaronLay10/SceneBridge/internal/scene"
)

// Property defaults of cameras and lights.
var (
	defaultUpVector   = scene.Vec3{0, 1, 0}
	defaultLightColor = scene.Vec3{1, 1, 1}
)

const (
	defaultIntensity  = 100
	defaultOuterAngle = 45
	defaultFog        = 50
)

// propReader reads typed properties and keeps the first error.
type propReader struct {
	props fbx.Properties
	err   error
}

func (p *propReader) keep(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *propReader) vec3(name string, def scene.Vec3) scene.Vec3 {
	v, err := p.props.Vec3(name, def)
	p.keep(err)
	return v
}

func (p *propReader) float(name string, def float64) float64 {
	v, err := p.props.Float(name, def)
	p.keep(err)
	return v
}

func (p *propReader) int(name string, def int64) int64 {
	v, err := p.props.Int(name, def)
	p.keep(err)
	return v
}

func (p *propReader) bool(name string, def bool) bool {
	v, err := p.props.Bool(name, def)
	p.keep(err)
	return v
}

// extractTransform reads the node's geometric pivot transform. The
// animatable Lcl values are not used.
func extractTransform(n *fbx.Node) (scene.Transform, error) {
	var xf scene.Transform
	var err error
	if xf.Position, err = n.GeometricTranslation(); err != nil {
		return scene.Transform{}, err
	}
	if xf.Rotation, err = n.GeometricRotation(); err != nil {
		return scene.Transform{}, err
	}
	if xf.Scale, err = n.GeometricScaling(); err != nil {
		return scene.Transform{}, err
	}
	return xf, nil
}

func extractCamera(n *fbx.Node) (scene.CameraParams, error) {
	p := propReader{props: n.Attribute().Props}
	cam := scene.CameraParams{
		InterestPosition: p.vec3("InterestPosition", scene.Vec3{}),
		UpVector:         p.vec3("UpVector", defaultUpVector),
		Roll:             p.float("Roll", 0),
	}
	proj := p.int("CameraProjectionType", 0)
	if p.err != nil {
		return scene.CameraParams{}, p.err
	}
	switch proj {
	case 0:
		cam.Projection = scene.Perspective
	case 1:
		cam.Projection = scene.Orthogonal
	default:
		return scene.CameraParams{}, fmt.Errorf("unknown camera projection type %d", proj)
	}
	return cam, nil
}

func extractLight(n *fbx.Node) (scene.LightParams, error) {
	p := propReader{props: n.Attribute().Props}
	light := scene.LightParams{
		CastLight:  p.bool("CastLight", true),
		Color:      p.vec3("Color", defaultLightColor),
		Intensity:  p.float("Intensity", defaultIntensity),
		OuterAngle: p.float("OuterAngle", defaultOuterAngle),
		Fog:        p.float("Fog", defaultFog),
	}
	kind := p.int("LightType", 0)
	if p.err != nil {
		return scene.LightParams{}, p.err
	}
	switch kind {
	case 0:
		light.Kind = scene.PointLight
	case 1:
		light.Kind = scene.DirectionalLight
	case 2:
		light.Kind = scene.SpotLight
	default:
		return scene.LightParams{}, fmt.Errorf("unknown light type %d", kind)
	}
	return light, nil
}
