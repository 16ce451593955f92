// Package solid models the relief as a signed distance field and meshes
// it with marching cubes, producing a watertight solid suitable for 3D
// printing. This is the STL export path; the displayed surface and the
// GLB export use the open grid mesh instead.
package solid

import (
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/papilink/relief/pkg/depth"
	"github.com/papilink/relief/pkg/mesh"
)

// Compile-time interface check.
var _ sdf.SDF3 = (*Relief)(nil)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 200

// Relief is an SDF3 of the extruded depth field sitting on a solid base
// slab. Heights follow the same inversion and scaling as the displayed
// surface, so the printed solid matches the preview.
type Relief struct {
	field  *depth.Field
	params mesh.Parameters
	base   float64 // slab thickness below z=0
	halfW  float64
	halfH  float64
}

// NewRelief wraps a depth field as a printable solid. The same degenerate
// grid rule applies as for the surface builder.
func NewRelief(field *depth.Field, params mesh.Parameters, baseThickness float64) (*Relief, error) {
	if field == nil || field.Width < 2 || field.Height < 2 {
		w, h := 0, 0
		if field != nil {
			w, h = field.Width, field.Height
		}
		return nil, &mesh.InvalidInputError{Width: w, Height: h}
	}
	if baseThickness < 1 {
		baseThickness = 1
	}
	return &Relief{
		field:  field,
		params: params,
		base:   baseThickness,
		halfW:  float64(field.Width) / 2,
		halfH:  float64(field.Height) / 2,
	}, nil
}

// heightAt bilinearly samples the extruded height at world (x, y).
func (r *Relief) heightAt(x, y float64) float64 {
	w, h := r.field.Width, r.field.Height

	// World XY to fractional grid coordinates. Rows run top to bottom.
	fx := (x + r.halfW) / float64(w) * float64(w-1)
	fy := (r.halfH - y) / float64(h) * float64(h-1)

	fx = math.Max(0, math.Min(fx, float64(w-1)))
	fy = math.Max(0, math.Min(fy, float64(h-1)))

	x0, y0 := int(fx), int(fy)
	x1, y1 := x0+1, y0+1
	if x1 > w-1 {
		x1 = w - 1
	}
	if y1 > h-1 {
		y1 = h - 1
	}
	tx, ty := fx-float64(x0), fy-float64(y0)

	d00 := r.field.At(x0, y0)
	d10 := r.field.At(x1, y0)
	d01 := r.field.At(x0, y1)
	d11 := r.field.At(x1, y1)
	d := (d00*(1-tx)+d10*tx)*(1-ty) + (d01*(1-tx)+d11*tx)*ty

	return (1-d)*(100*r.params.DepthScale) + r.params.BaseHeight*20
}

// Evaluate implements sdf.SDF3. Negative inside the solid. The distance
// is a conservative bound, which is all marching cubes needs.
func (r *Relief) Evaluate(p v3.Vec) float64 {
	dx := math.Abs(p.X) - r.halfW
	dy := math.Abs(p.Y) - r.halfH
	dzTop := p.Z - r.heightAt(p.X, p.Y)
	dzBottom := -r.base - p.Z
	return math.Max(math.Max(dx, dy), math.Max(dzTop, dzBottom))
}

// BoundingBox implements sdf.SDF3.
func (r *Relief) BoundingBox() sdf.Box3 {
	maxZ := 100*r.params.DepthScale + r.params.BaseHeight*20
	if maxZ < 1 {
		maxZ = 1
	}
	return sdf.Box3{
		Min: v3.Vec{X: -r.halfW, Y: -r.halfH, Z: -r.base},
		Max: v3.Vec{X: r.halfW, Y: r.halfH, Z: maxZ},
	}
}

// Triangles meshes the solid with marching cubes. cells <= 0 selects the
// default resolution.
func (r *Relief) Triangles(cells int) []*sdf.Triangle3 {
	if cells <= 0 {
		cells = defaultMeshCells
	}
	renderer := render.NewMarchingCubesUniform(cells)
	return render.ToTriangles(r, renderer)
}

// SaveSTL meshes the solid and writes it to an STL file.
func (r *Relief) SaveSTL(path string, cells int) error {
	return render.SaveSTL(path, r.Triangles(cells))
}

// ToMesh converts the solid into a flat triangle mesh with per-face
// normals, for previewing the printable geometry.
func (r *Relief) ToMesh(cells int) *mesh.Surface {
	triangles := r.Triangles(cells)

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)
		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &mesh.Surface{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}
}
