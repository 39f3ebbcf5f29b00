package stl

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/philipparndt/goslm/pkg/geometry"
)

// Transform places a part on the build platform
type Transform struct {
	// Rotation holds Euler angles in degrees, applied X then Y then Z
	Rotation geometry.Vector3
	// Scale is a uniform scale factor, zero means unchanged
	Scale float64
	// Drop lowers or raises the part so its lowest point sits at DropHeight
	Drop       bool
	DropHeight float64
}

// Apply returns a transformed copy of the model. Normals are recomputed from
// the winding, which rotation and positive scaling preserve.
func (m *Model) Apply(tr Transform) *Model {
	scale := tr.Scale
	if scale == 0 {
		scale = 1
	}

	mat := mgl64.HomogRotate3DZ(mgl64.DegToRad(tr.Rotation.Z)).
		Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(tr.Rotation.Y))).
		Mul4(mgl64.HomogRotate3DX(mgl64.DegToRad(tr.Rotation.X))).
		Mul4(mgl64.Scale3D(scale, scale, scale))

	out := m.mapVertices(mat)
	if tr.Drop {
		return out.DropToPlatform(tr.DropHeight)
	}
	return out
}

// AlignAxis rotates the model so that axis points along +Z
func (m *Model) AlignAxis(axis geometry.Vector3) *Model {
	from := mgl64.Vec3{axis.X, axis.Y, axis.Z}.Normalize()
	to := mgl64.Vec3{0, 0, 1}
	if from.ApproxEqual(to) {
		return m
	}
	return m.mapVertices(mgl64.QuatBetweenVectors(from, to).Mat4())
}

// DropToPlatform translates the model vertically so its lowest point is at height
func (m *Model) DropToPlatform(height float64) *Model {
	bbox := m.BoundingBox()
	if bbox.IsEmpty() {
		return m
	}
	return m.mapVertices(mgl64.Translate3D(0, 0, height-bbox.Min.Z))
}

func (m *Model) mapVertices(mat mgl64.Mat4) *Model {
	apply := func(v geometry.Vector3) geometry.Vector3 {
		r := mgl64.TransformCoordinate(mgl64.Vec3{v.X, v.Y, v.Z}, mat)
		return geometry.NewVector3(r.X(), r.Y(), r.Z())
	}

	out := &Model{Name: m.Name, Triangles: make([]geometry.Triangle, len(m.Triangles))}
	for i, t := range m.Triangles {
		moved := geometry.Triangle{V1: apply(t.V1), V2: apply(t.V2), V3: apply(t.V3)}
		moved.Normal = moved.CalculateNormal()
		out.Triangles[i] = moved
	}
	return out
}
