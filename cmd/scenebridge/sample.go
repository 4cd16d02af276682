package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/SceneBridge/internal/fbx"
)

func newSampleCmd() *cobra.Command {
	var fileVersion uint32
	cmd := &cobra.Command{
		Use:   "sample <out.fbx>",
		Short: "Write a small demo scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sampleScene().WriteFile(args[0], fileVersion); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (FBX %s)\n", args[0], fbx.FileVersion(fileVersion))
			return nil
		},
	}
	cmd.Flags().Uint32Var(&fileVersion, "file-version", 7500, "FBX file version number, e.g. 7400 or 7500")
	return cmd
}

// sampleScene is a camera, a light rig under a null, a ground mesh and an
// unsupported NURBS surface.
func sampleScene() *fbx.Builder {
	b := fbx.NewBuilder()

	cam := b.Model(fbx.RootID, "main_cam", "Camera",
		fbx.PLcl("Lcl Translation", 0, 160, 400),
		fbx.PVector("GeometricTranslation", 0, 0, 0),
	)
	b.NodeAttribute(cam, "Camera",
		fbx.PVector("InterestPosition", 0, 100, 0),
		fbx.PVector("UpVector", 0, 1, 0),
		fbx.PNumber("Roll", 0),
		fbx.PEnum("CameraProjectionType", 0),
	)

	rig := b.Model(fbx.RootID, "light_rig", "Null")
	b.NodeAttribute(rig, "Null")

	key := b.Model(rig, "key_light", "Light",
		fbx.PVector("GeometricRotation", -45, 30, 0),
	)
	b.NodeAttribute(key, "Light",
		fbx.PEnum("LightType", 2),
		fbx.PColor("Color", 1, 0.95, 0.85),
		fbx.PNumber("Intensity", 120),
		fbx.PNumber("OuterAngle", 40),
		fbx.PBool("CastLight", true),
	)

	sun := b.Model(rig, "sun", "Light")
	b.NodeAttribute(sun, "Light",
		fbx.PEnum("LightType", 1),
		fbx.PNumber("Intensity", 80),
	)

	ground := b.Model(fbx.RootID, "ground", "Mesh",
		fbx.PVector("GeometricScaling", 10, 1, 10),
	)
	b.Geometry(ground, "ground_geo", "Mesh",
		&fbx.Element{Name: "Vertices", Properties: []fbx.Property{fbx.Float64s([]float64{
			-1, 0, -1, 1, 0, -1, 1, 0, 1, -1, 0, 1,
		})}},
		&fbx.Element{Name: "PolygonVertexIndex", Properties: []fbx.Property{fbx.Int32s([]int32{0, 1, 2, -4})}},
	)

	trim := b.Model(fbx.RootID, "trim", "NurbsSurface")
	b.NodeAttribute(trim, "NurbsSurface")

	return b
}
