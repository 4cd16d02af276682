package loader

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/SceneBridge/internal/fbx"
	"github.com/AaronLay10/SceneBridge/internal/report"
	"github.com/AaronLay10/SceneBridge/internal/scene"
)

func writeScene(t *testing.T, dir string, version uint32, build func(b *fbx.Builder)) string {
	t.Helper()
	b := fbx.NewBuilder()
	build(b)
	path := filepath.Join(dir, fmt.Sprintf("scene-%d.fbx", version))
	require.NoError(t, b.WriteFile(path, version))
	return path
}

func newLibrary(t *testing.T, opts ...Option) (*Library, *report.Recorder) {
	t.Helper()
	lc := &report.Recorder{}
	l := New(lc, opts...)
	require.Equal(t, Initialized, l.Status(), lc.Snapshot().Errors)
	t.Cleanup(l.Teardown)
	return l, lc
}

func assertNoLeaks(t *testing.T, l *Library) {
	t.Helper()
	if l.sdk != nil {
		assert.Equal(t, 0, l.sdk.Live(), "importer or scene left alive")
	}
}

func TestNew_LogsSDKVersion(t *testing.T) {
	_, lc := newLibrary(t)
	snap := lc.Snapshot()
	assert.Empty(t, snap.Errors)
	assert.Equal(t, []string{"Loaded FBX SDK v7.5.0"}, snap.Logs)
}

func TestStatus_Ordinals(t *testing.T) {
	assert.Equal(t, Status(0), NotInitialized)
	assert.Equal(t, Status(1), Initialized)
	assert.Equal(t, Status(2), InitError)
	assert.Equal(t, Status(3), RuntimeError)
}

func TestLoadFile_Camera(t *testing.T) {
	path := writeScene(t, t.TempDir(), 7500, func(b *fbx.Builder) {
		cam := b.Model(fbx.RootID, "cam", "Camera")
		b.NodeAttribute(cam, "Camera",
			fbx.PVector("InterestPosition", 1, 2, 3),
			fbx.PVector("UpVector", 0, 1, 0),
			fbx.PNumber("Roll", 0),
			fbx.PEnum("CameraProjectionType", 0))
	})
	l, _ := newLibrary(t)
	r := &report.Recorder{}

	require.True(t, l.LoadFile(path, r), r.Snapshot().Errors)
	snap := r.Snapshot()
	assert.Empty(t, snap.Errors)
	require.Len(t, snap.Cameras, 1)
	assert.Equal(t, "cam", snap.Cameras[0].Name)
	assert.Equal(t, scene.CameraParams{
		InterestPosition: scene.Vec3{1, 2, 3},
		UpVector:         scene.Vec3{0, 1, 0},
		Roll:             0,
		Projection:       scene.Perspective,
	}, snap.Cameras[0].Value)

	// Transform precedes the camera.
	var order []string
	for _, c := range snap.Calls {
		if strings.HasSuffix(c, ":cam") {
			order = append(order, c)
		}
	}
	assert.Equal(t, []string{"transform:cam", "camera:cam"}, order)
	assertNoLeaks(t, l)
}

func TestLoadFile_SpotLightWithMalformedSibling(t *testing.T) {
	path := writeScene(t, t.TempDir(), 7400, func(b *fbx.Builder) {
		bad := b.Model(fbx.RootID, "badcam", "Camera")
		b.NodeAttribute(bad, "Camera", fbx.PEnum("CameraProjectionType", 7))
		lamp := b.Model(fbx.RootID, "lamp", "Light")
		b.NodeAttribute(lamp, "Light",
			fbx.PEnum("LightType", 2),
			fbx.PColor("Color", 1, 1, 1),
			fbx.PNumber("Intensity", 100),
			fbx.PNumber("OuterAngle", 45),
			fbx.PNumber("Fog", 0))
	})
	l, _ := newLibrary(t)
	r := &report.Recorder{}

	require.True(t, l.LoadFile(path, r))
	snap := r.Snapshot()
	assert.Empty(t, snap.Errors)
	assert.Empty(t, snap.Cameras)
	require.Len(t, snap.Lights, 1)
	assert.Equal(t, "lamp", snap.Lights[0].Name)
	assert.Equal(t, scene.LightParams{
		Kind:       scene.SpotLight,
		CastLight:  true,
		Color:      scene.Vec3{1, 1, 1},
		Intensity:  100,
		OuterAngle: 45,
		Fog:        0,
	}, snap.Lights[0].Value)
	assert.Contains(t, strings.Join(snap.Logs, "\n"),
		"node 'badcam' skipped (non-critical): unknown camera projection type 7")
}

func TestLoadFile_LightDefaults(t *testing.T) {
	path := writeScene(t, t.TempDir(), 7500, func(b *fbx.Builder) {
		b.NodeAttribute(b.Model(fbx.RootID, "bulb", "Light"), "Light")
	})
	l, _ := newLibrary(t)
	r := &report.Recorder{}

	require.True(t, l.LoadFile(path, r))
	snap := r.Snapshot()
	require.Len(t, snap.Lights, 1)
	assert.Equal(t, scene.LightParams{
		Kind:       scene.PointLight,
		CastLight:  true,
		Color:      scene.Vec3{1, 1, 1},
		Intensity:  100,
		OuterAngle: 45,
		Fog:        50,
	}, snap.Lights[0].Value)
}

func TestLoadFile_TransformUsesGeometricPivot(t *testing.T) {
	path := writeScene(t, t.TempDir(), 7500, func(b *fbx.Builder) {
		m := b.Model(fbx.RootID, "box", "Mesh",
			fbx.PLcl("Lcl Translation", 10, 20, 30),
			fbx.PLcl("Lcl Scaling", 5, 5, 5),
			fbx.PVector("GeometricTranslation", 1, 0, 0),
			fbx.PVector("GeometricRotation", 0, 90, 0))
		b.Geometry(m, "boxGeo", "Mesh")
	})
	l, _ := newLibrary(t)
	r := &report.Recorder{}

	require.True(t, l.LoadFile(path, r))
	snap := r.Snapshot()
	require.Len(t, snap.Transforms, 1)
	assert.Equal(t, scene.Transform{
		Position: scene.Vec3{1, 0, 0},
		Rotation: scene.Vec3{0, 90, 0},
		Scale:    scene.Vec3{1, 1, 1},
	}, snap.Transforms[0].Value)
	assert.Empty(t, snap.Meshes)
}

func TestLoadFile_MalformedTransformSkipsNode(t *testing.T) {
	path := writeScene(t, t.TempDir(), 7500, func(b *fbx.Builder) {
		cam := b.Model(fbx.RootID, "cam", "Camera",
			fbx.P("GeometricTranslation", "Vector3D", "Vector", "", fbx.Float64(1), fbx.Float64(2)))
		b.NodeAttribute(cam, "Camera")
		b.Model(cam, "child", "Null")
	})
	l, _ := newLibrary(t)
	r := &report.Recorder{}

	require.True(t, l.LoadFile(path, r))
	snap := r.Snapshot()
	assert.Zero(t, r.Emissions())
	logs := strings.Join(snap.Logs, "\n")
	assert.Contains(t, logs, "node 'cam' skipped (non-critical)")
	assert.Contains(t, logs, "node 'child' has no attribute (non-critical)")
	assert.Contains(t, logs, "Traversed 3 nodes")
}

func TestLoadFile_DispatchLogs(t *testing.T) {
	path := writeScene(t, t.TempDir(), 7500, func(b *fbx.Builder) {
		b.NodeAttribute(b.Model(fbx.RootID, "surf", "NurbsSurface"), "NurbsSurface")
		b.Geometry(b.Model(fbx.RootID, "curve", "Nurbs"), "curveGeo", "Nurbs")
		b.Geometry(b.Model(fbx.RootID, "quad", "Patch"), "quadGeo", "Patch")
		b.NodeAttribute(b.Model(fbx.RootID, "bone", "LimbNode"), "LimbNode")
		b.NodeAttribute(b.Model(fbx.RootID, "mark", "Marker"), "Marker")
		b.NodeAttribute(b.Model(fbx.RootID, "null", "Null"), "Null")
		b.Model(fbx.RootID, "bare", "Null")
	})
	l, _ := newLibrary(t)
	r := &report.Recorder{}

	require.True(t, l.LoadFile(path, r))
	snap := r.Snapshot()
	assert.Equal(t, []string{
		"Loaded file '" + path + "'. File version 7.5.0",
		"node 'RootNode' has no attribute (non-critical)",
		"Unsupported fbx node (NURBS) 'surf'; skipping",
		"Unsupported fbx node (NURBS) 'curve'; skipping",
		"Unsupported fbx node (patch) 'quad'; skipping",
		"node 'bare' has no attribute (non-critical)",
		"Traversed 8 nodes",
	}, snap.Logs)
	assert.Zero(t, r.Emissions())
}

func TestLoadFile_VisitsEveryNode(t *testing.T) {
	subclasses := []string{"", "Marker", "LimbNode", "Mesh", "Nurbs", "Patch", "Camera", "Light", "LodGroup", "Null", "Bogus"}
	dir := t.TempDir()
	l, _ := newLibrary(t)

	for seed := int64(1); seed <= 8; seed++ {
		rng := rand.New(rand.NewSource(seed))
		n := 1 + rng.Intn(60)
		path := writeScene(t, dir, 7500, func(b *fbx.Builder) {
			ids := []int64{fbx.RootID}
			for i := 0; i < n; i++ {
				parent := ids[rng.Intn(len(ids))]
				sub := subclasses[rng.Intn(len(subclasses))]
				id := b.Model(parent, fmt.Sprintf("n%d", i), "Null")
				ids = append(ids, id)
				switch {
				case sub == "":
				case sub == "Mesh":
					b.Geometry(id, "", sub)
				case rng.Intn(4) == 0:
					// malformed attribute data
					b.NodeAttribute(id, sub, fbx.PEnum("CameraProjectionType", 9), fbx.PEnum("LightType", 9))
				default:
					b.NodeAttribute(id, sub)
				}
			}
		})
		r := &report.Recorder{}
		require.True(t, l.LoadFile(path, r), "seed %d", seed)
		assert.Contains(t, r.Snapshot().Logs, fmt.Sprintf("Traversed %d nodes", n+1), "seed %d", seed)
		assertNoLeaks(t, l)
	}
}

func TestLoadFile_VersionTooNew(t *testing.T) {
	path := writeScene(t, t.TempDir(), 7700, func(b *fbx.Builder) {
		b.Model(fbx.RootID, "a", "Null")
	})
	l, _ := newLibrary(t)
	r := &report.Recorder{}

	assert.False(t, l.LoadFile(path, r))
	snap := r.Snapshot()
	require.Len(t, snap.Errors, 1)
	assert.Contains(t, snap.Errors[0], "7.5.0")
	assert.Contains(t, snap.Errors[0], "7.7.0")
	assert.Empty(t, snap.Logs)
	assert.Equal(t, Initialized, l.Status())
	assertNoLeaks(t, l)
}

func TestLoadFile_VersionTooOld(t *testing.T) {
	path := writeScene(t, t.TempDir(), 6000, func(b *fbx.Builder) {
		b.Model(fbx.RootID, "a", "Null")
	})
	l, _ := newLibrary(t)
	r := &report.Recorder{}

	assert.False(t, l.LoadFile(path, r))
	assert.Equal(t, []string{"Import Failed: Invalid file version.\n\tFBX SDK v7.5.0\n\tFile v6.0.0"},
		r.Snapshot().Errors)
	assert.Zero(t, r.Emissions())
	assertNoLeaks(t, l)
}

func TestLoadFile_ConfiguredVersionRange(t *testing.T) {
	path := writeScene(t, t.TempDir(), 6100, func(b *fbx.Builder) {
		b.Model(fbx.RootID, "a", "Null")
	})
	l, _ := newLibrary(t, WithMinVersion(fbx.Version{Major: 6, Minor: 0, Revision: 0}), WithSupportedVersion(fbx.Version{Major: 7, Minor: 4, Revision: 0}))
	r := &report.Recorder{}

	assert.True(t, l.LoadFile(path, r), r.Snapshot().Errors)
	assert.Equal(t, fbx.Version{Major: 7, Minor: 4, Revision: 0}, l.SupportedVersion())
}

func TestLoadFile_MissingFile(t *testing.T) {
	l, _ := newLibrary(t)
	r := &report.Recorder{}

	assert.False(t, l.LoadFile(filepath.Join(t.TempDir(), "nope.fbx"), r))
	snap := r.Snapshot()
	require.Len(t, snap.Errors, 1)
	assert.True(t, strings.HasPrefix(snap.Errors[0], "Import Failed: "), snap.Errors[0])
	assert.Equal(t, Initialized, l.Status())
	assertNoLeaks(t, l)
}

func TestLoadFile_CorruptBody(t *testing.T) {
	dir := t.TempDir()
	good := writeScene(t, dir, 7500, func(b *fbx.Builder) {
		for i := 0; i < 10; i++ {
			b.Model(fbx.RootID, fmt.Sprintf("m%d", i), "Null")
		}
	})
	data, err := os.ReadFile(good)
	require.NoError(t, err)
	bad := filepath.Join(dir, "bad.fbx")
	require.NoError(t, os.WriteFile(bad, data[:len(data)-60], 0o644))

	l, _ := newLibrary(t)
	r := &report.Recorder{}
	assert.False(t, l.LoadFile(bad, r))
	snap := r.Snapshot()
	require.Len(t, snap.Errors, 1)
	assert.True(t, strings.HasPrefix(snap.Errors[0], "Could not load into scene! (critical)\n\t"), snap.Errors[0])
	assertNoLeaks(t, l)

	// The library stays usable.
	r = &report.Recorder{}
	assert.True(t, l.LoadFile(good, r))
}

func TestLoadFile_SceneCreationFails(t *testing.T) {
	path := writeScene(t, t.TempDir(), 7500, func(b *fbx.Builder) {
		b.Model(fbx.RootID, "a", "Null")
	})
	l, _ := newLibrary(t, WithMaxLiveObjects(1))
	r := &report.Recorder{}

	assert.False(t, l.LoadFile(path, r))
	assert.Equal(t, []string{"Could not create scene object! (critical)"}, r.Snapshot().Errors)
	assert.Equal(t, Initialized, l.Status())
	assertNoLeaks(t, l)
}

func TestLoadFile_RelativeToLocalPath(t *testing.T) {
	dir := t.TempDir()
	path := writeScene(t, dir, 7500, func(b *fbx.Builder) {
		b.Model(fbx.RootID, "a", "Null")
	})
	l := New(&report.Recorder{Path: dir})
	defer l.Teardown()
	r := &report.Recorder{}

	assert.True(t, l.LoadFile(filepath.Base(path), r), r.Snapshot().Errors)
}

func TestNew_InitError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	lc := &report.Recorder{Path: file}

	l := New(lc)
	assert.Equal(t, InitError, l.Status())
	snap := lc.Snapshot()
	require.Len(t, snap.Errors, 1)
	assert.True(t, strings.HasPrefix(snap.Errors[0], "Unable to create FBX Manager (critical)"))

	// Fails before touching the file system: the path does not exist, yet
	// the error is not an import failure.
	r := &report.Recorder{}
	assert.False(t, l.LoadFile(filepath.Join(file, "missing.fbx"), r))
	require.Len(t, r.Snapshot().Errors, 1)
	assert.Contains(t, r.Snapshot().Errors[0], "init_error")

	l.Teardown()
	assert.Equal(t, InitError, l.Status())
}

func TestTeardown_Idempotent(t *testing.T) {
	path := writeScene(t, t.TempDir(), 7500, func(b *fbx.Builder) {
		b.Model(fbx.RootID, "a", "Null")
	})
	l, lc := newLibrary(t)
	sdk := l.sdk

	l.Teardown()
	assert.True(t, sdk.Destroyed())
	assert.Nil(t, l.sdk)
	assert.Equal(t, NotInitialized, l.Status())
	l.Teardown()
	assert.Equal(t, NotInitialized, l.Status())
	assert.Empty(t, lc.Snapshot().Errors)

	r := &report.Recorder{}
	assert.False(t, l.LoadFile(path, r))
	assert.Len(t, r.Snapshot().Errors, 1)
	assert.Zero(t, r.Emissions())
}

func TestLoadFile_RuntimeError(t *testing.T) {
	path := writeScene(t, t.TempDir(), 7500, func(b *fbx.Builder) {
		b.Model(fbx.RootID, "a", "Null")
	})
	l, lc := newLibrary(t)
	l.sdk.Destroy()

	r := &report.Recorder{}
	assert.False(t, l.LoadFile(path, r))
	assert.Equal(t, RuntimeError, l.Status())
	assert.Len(t, r.Snapshot().Errors, 1)
	assert.Len(t, lc.Snapshot().Errors, 1)

	r = &report.Recorder{}
	assert.False(t, l.LoadFile(path, r))
	assert.Contains(t, r.Snapshot().Errors[0], "runtime_error")

	l.Teardown()
	assert.Equal(t, RuntimeError, l.Status())
}

func TestTranslator_NilRoot(t *testing.T) {
	r := &report.Recorder{}
	tr := &translator{r: r}

	assert.False(t, tr.run(nil))
	assert.Equal(t, []string{"Null scene root node!"}, r.Snapshot().Errors)
	assert.Zero(t, r.Emissions())
	assert.Zero(t, tr.visited)
}

func TestLoadFile_Extractors(t *testing.T) {
	path := writeScene(t, t.TempDir(), 7500, func(b *fbx.Builder) {
		box := b.Model(fbx.RootID, "box", "Mesh")
		b.Geometry(box, "boxGeo", "Mesh",
			&fbx.Element{Name: "Vertices", Properties: []fbx.Property{fbx.Float64s([]float64{0, 0, 0, 1, 0, 0, 0, 1, 0})}})
		lod := b.Model(fbx.RootID, "lod", "LodGroup")
		b.NodeAttribute(lod, "LodGroup")
		b.Model(lod, "lod0", "Null")
	})

	mesh := MeshExtractorFunc(func(n *fbx.Node, r report.LoadReporter) error {
		v := n.Attribute().Element.Child("Vertices")
		if v == nil {
			return errors.New("no vertices")
		}
		flat, _ := v.Properties[0].Value.([]float64)
		var m scene.Mesh
		for i := 0; i+2 < len(flat); i += 3 {
			m.Vertices = append(m.Vertices, scene.Vec3{flat[i], flat[i+1], flat[i+2]})
		}
		r.EmitMesh(n.Name, m)
		return nil
	})
	lodErr := LODGroupExtractorFunc(func(n *fbx.Node, r report.LoadReporter) error {
		return errors.New("levels not supported")
	})
	l, _ := newLibrary(t, WithMeshExtractor(mesh), WithLODGroupExtractor(lodErr))
	r := &report.Recorder{}

	require.True(t, l.LoadFile(path, r))
	snap := r.Snapshot()
	require.Len(t, snap.Meshes, 1)
	assert.Len(t, snap.Meshes[0].Value.Vertices, 3)
	assert.Equal(t, []string{"transform:box", "mesh:box"}, snap.Calls[2:4])
	require.Len(t, snap.Transforms, 1, "a node whose extractor fails gets no transform")
	assert.Equal(t, "box", snap.Transforms[0].Name)
	assert.NotContains(t, snap.Calls, "transform:lod")
	logs := strings.Join(snap.Logs, "\n")
	assert.Contains(t, logs, "node 'lod' skipped (non-critical): levels not supported")
	assert.Contains(t, logs, "Traversed 4 nodes")
}

func TestLoadFile_FailedExtractorEmitsNothing(t *testing.T) {
	path := writeScene(t, t.TempDir(), 7500, func(b *fbx.Builder) {
		b.Geometry(b.Model(fbx.RootID, "box", "Mesh"), "boxGeo", "Mesh")
	})
	partial := MeshExtractorFunc(func(n *fbx.Node, r report.LoadReporter) error {
		r.EmitMesh(n.Name, scene.Mesh{Vertices: []scene.Vec3{{0, 0, 0}}})
		r.LogMessage("reading indices")
		return errors.New("bad indices")
	})
	l, _ := newLibrary(t, WithMeshExtractor(partial))
	r := &report.Recorder{}

	require.True(t, l.LoadFile(path, r))
	snap := r.Snapshot()
	assert.Empty(t, snap.Transforms)
	assert.Empty(t, snap.Meshes)
	logs := strings.Join(snap.Logs, "\n")
	assert.Contains(t, logs, "reading indices")
	assert.Contains(t, logs, "node 'box' skipped (non-critical): bad indices")
}

func TestLoadFile_RecoversPanic(t *testing.T) {
	path := writeScene(t, t.TempDir(), 7500, func(b *fbx.Builder) {
		b.Geometry(b.Model(fbx.RootID, "box", "Mesh"), "", "Mesh")
	})
	boom := MeshExtractorFunc(func(*fbx.Node, report.LoadReporter) error { panic("boom") })
	l, _ := newLibrary(t, WithMeshExtractor(boom))
	r := &report.Recorder{}

	assert.False(t, l.LoadFile(path, r))
	snap := r.Snapshot()
	require.Len(t, snap.Errors, 1)
	assert.Contains(t, snap.Errors[0], "boom")
	assert.Equal(t, Initialized, l.Status())
	assertNoLeaks(t, l)
}
