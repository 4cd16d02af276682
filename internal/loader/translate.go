package loader

import (
	"fmt"

	"github.com/AaronLay10/SceneBridge/internal/fbx"
	"github.com/AaronLay10/SceneBridge/internal/report"
	"github.com/AaronLay10/SceneBridge/internal/scene"
)

// Classify returns the kind of attribute carried by n.
func Classify(n *fbx.Node) scene.AttributeKind {
	a := n.Attribute()
	if a == nil {
		return scene.AttributeNone
	}
	switch a.Type {
	case fbx.AttrMarker:
		return scene.AttributeMarker
	case fbx.AttrSkeleton:
		return scene.AttributeSkeleton
	case fbx.AttrMesh:
		return scene.AttributeMesh
	case fbx.AttrNurbs, fbx.AttrNurbsSurface:
		return scene.AttributeNurbs
	case fbx.AttrPatch:
		return scene.AttributePatch
	case fbx.AttrCamera:
		return scene.AttributeCamera
	case fbx.AttrLight:
		return scene.AttributeLight
	case fbx.AttrLODGroup:
		return scene.AttributeLODGroup
	}
	return scene.AttributeOther
}

type translator struct {
	r       report.LoadReporter
	mesh    MeshExtractor
	lod     LODGroupExtractor
	visited int
}

func (l *Library) translate(s *fbx.Scene, r report.LoadReporter) bool {
	for _, w := range s.Warnings() {
		r.LogMessage("Scene warning (non-critical): " + w)
	}
	t := &translator{r: r, mesh: l.mesh, lod: l.lod}
	return t.run(s.RootNode())
}

// run walks the tree under root in pre-order. It fails only when root is
// nil.
func (t *translator) run(root *fbx.Node) bool {
	if root == nil {
		t.r.ReportError("Null scene root node!")
		return false
	}
	t.visit(root)
	t.r.LogMessage(fmt.Sprintf("Traversed %d nodes", t.visited))
	return true
}

func (t *translator) visit(n *fbx.Node) {
	t.visited++
	if err := t.dispatch(n); err != nil {
		t.r.LogMessage(fmt.Sprintf("node '%s' skipped (non-critical): %v", n.Name, err))
	}
	for i := 0; i < n.ChildCount(); i++ {
		t.visit(n.Child(i))
	}
}

func (t *translator) dispatch(n *fbx.Node) error {
	switch Classify(n) {
	case scene.AttributeNone:
		t.r.LogMessage(fmt.Sprintf("node '%s' has no attribute (non-critical)", n.Name))
	case scene.AttributeMesh:
		var ext func(report.LoadReporter) error
		if t.mesh != nil {
			ext = func(r report.LoadReporter) error { return t.mesh.ExtractMesh(n, r) }
		}
		return t.extended(n, ext)
	case scene.AttributeNurbs:
		t.r.LogMessage(fmt.Sprintf("Unsupported fbx node (NURBS) '%s'; skipping", n.Name))
	case scene.AttributePatch:
		t.r.LogMessage(fmt.Sprintf("Unsupported fbx node (patch) '%s'; skipping", n.Name))
	case scene.AttributeCamera:
		cam, err := extractCamera(n)
		if err != nil {
			return err
		}
		if err := t.transform(n); err != nil {
			return err
		}
		t.r.EmitCamera(n.Name, cam)
	case scene.AttributeLight:
		light, err := extractLight(n)
		if err != nil {
			return err
		}
		if err := t.transform(n); err != nil {
			return err
		}
		t.r.EmitLight(n.Name, light)
	case scene.AttributeLODGroup:
		var ext func(report.LoadReporter) error
		if t.lod != nil {
			ext = func(r report.LoadReporter) error { return t.lod.ExtractLODGroup(n, r) }
		}
		return t.extended(n, ext)
	}
	return nil
}

// extended handles a node whose element comes from an optional extractor.
// The extractor runs before anything is emitted for n; when it fails the
// node gets neither its transform nor the elements the extractor emitted.
func (t *translator) extended(n *fbx.Node, ext func(report.LoadReporter) error) error {
	xf, err := extractTransform(n)
	if err != nil {
		return err
	}
	h := &held{LoadReporter: t.r}
	if ext != nil {
		if err := ext(h); err != nil {
			return err
		}
	}
	t.r.EmitTransform(n.Name, xf)
	for _, emit := range h.emits {
		emit(t.r)
	}
	return nil
}

// held passes diagnostics straight through and queues element emissions.
type held struct {
	report.LoadReporter
	emits []func(report.LoadReporter)
}

func (h *held) EmitTransform(name string, xf scene.Transform) {
	h.emits = append(h.emits, func(r report.LoadReporter) { r.EmitTransform(name, xf) })
}

func (h *held) EmitCamera(name string, c scene.CameraParams) {
	h.emits = append(h.emits, func(r report.LoadReporter) { r.EmitCamera(name, c) })
}

func (h *held) EmitLight(name string, l scene.LightParams) {
	h.emits = append(h.emits, func(r report.LoadReporter) { r.EmitLight(name, l) })
}

func (h *held) EmitMesh(name string, m scene.Mesh) {
	h.emits = append(h.emits, func(r report.LoadReporter) { r.EmitMesh(name, m) })
}

func (t *translator) transform(n *fbx.Node) error {
	xf, err := extractTransform(n)
	if err != nil {
		return err
	}
	t.r.EmitTransform(n.Name, xf)
	return nil
}
