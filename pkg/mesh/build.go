package mesh

import (
	"fmt"

	"github.com/papilink/relief/pkg/depth"
	"github.com/papilink/relief/pkg/texture"
)

// Extrusion constants. A normalized depth value is inverted (lower raw
// depth means closer to the camera, which extrudes higher) and scaled
// into world units; the polarity is a fixed design choice matching the
// inference model's convention.
const (
	heightUnit     = 100.0 // world units per unit of inverted depth at scale 1.0
	baseHeightUnit = 20.0  // world units per unit of base height ratio
)

// normalMapStrength is the fixed strength used when the photograph is
// reused as a normal map input.
const normalMapStrength = 0.5

// restRotationX lays the grid flat so its "up" axis faces the viewer's
// up direction (depth-map-as-floor convention).
const restRotationX = -90.0

// InvalidInputError reports a degenerate depth grid: a surface needs at
// least a 2×2 vertex lattice to form one quad.
type InvalidInputError struct {
	Width  int
	Height int
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("depth grid %dx%d is degenerate: need at least 2x2", e.Width, e.Height)
}

// BuildSurface converts a depth field plus the source photograph into a
// displaced, textured grid surface. It is a pure computation: neither the
// field nor the texture is mutated, and a fresh Surface is returned.
//
// Vertex at row y, column x (flattened index i = y*width + x) gets height
//
//	z = (1 - depth[y][x]) * (100 * DepthScale) + BaseHeight * 20
//
// and normals are recomputed from the displaced positions.
func BuildSurface(field *depth.Field, tex *texture.Texture, params Parameters) (*Surface, error) {
	if field == nil || field.Width < 2 || field.Height < 2 {
		w, h := 0, 0
		if field != nil {
			w, h = field.Width, field.Height
		}
		return nil, &InvalidInputError{Width: w, Height: h}
	}

	w, h := field.Width, field.Height
	numVerts := w * h

	// Plane spanning w×h world units, centered on the XY origin, with
	// w-1 by h-1 subdivisions. Rows run top to bottom like the image.
	stepX := float64(w) / float64(w-1)
	stepY := float64(h) / float64(h-1)
	halfW := float64(w) / 2
	halfH := float64(h) / 2

	vertices := make([]float32, 0, numVerts*3)
	uvs := make([]float32, 0, numVerts*2)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := float64(x)*stepX - halfW
			py := halfH - float64(y)*stepY
			pz := (1-field.At(x, y))*(heightUnit*params.DepthScale) + params.BaseHeight*baseHeightUnit
			vertices = append(vertices, float32(px), float32(py), float32(pz))

			u := float64(x) / float64(w-1)
			v := 1 - float64(y)/float64(h-1)
			uvs = append(uvs, float32(u), float32(v))
		}
	}

	indices := gridIndices(w, h)
	normals := ComputeNormals(vertices, indices)

	s := &Surface{
		GridWidth:  w,
		GridHeight: h,
		Vertices:   vertices,
		Normals:    normals,
		UVs:        uvs,
		Indices:    indices,
		Texture:    tex,
		Rotation:   [3]float64{restRotationX, 0, 0},
	}
	if params.UseNormalMap {
		s.Material = Material{UseNormalMap: true, NormalMapStrength: normalMapStrength}
	}

	if params.AutoCenter {
		s.Recenter()
		s.Position = [3]float64{}
	}

	return s, nil
}

// gridIndices produces row-major strip indexing: one quad per cell,
// split into two counter-clockwise triangles.
func gridIndices(w, h int) []uint32 {
	indices := make([]uint32, 0, (w-1)*(h-1)*6)
	for y := 0; y < h-1; y++ {
		for x := 0; x < w-1; x++ {
			a := uint32(y*w + x)
			b := a + 1
			c := a + uint32(w)
			d := c + 1
			indices = append(indices, a, c, b, b, c, d)
		}
	}
	return indices
}
