// Package mesh builds a displaced, textured grid surface from a normalized
// depth field. The surface is the live, displayed object: a width×height
// vertex lattice connected as a regular grid of quads, each split into two
// triangles, with the source photograph applied via planar UV mapping.
package mesh

import (
	"github.com/papilink/relief/pkg/texture"
)

// Surface is a grid-topology triangle mesh suitable for rendering.
// All arrays are flat: Vertices has 3 floats per vertex (x,y,z),
// Normals has 3 floats per vertex, UVs has 2 floats per vertex,
// Indices has 3 uint32s per triangle.
type Surface struct {
	GridWidth  int       `json:"gridWidth"`  // vertices per row
	GridHeight int       `json:"gridHeight"` // vertices per column
	Vertices   []float32 `json:"vertices"`   // [x0,y0,z0, x1,y1,z1, ...]
	Normals    []float32 `json:"normals"`    // [nx0,ny0,nz0, ...]
	UVs        []float32 `json:"uvs"`        // [u0,v0, u1,v1, ...]
	Indices    []uint32  `json:"indices"`    // [i0,i1,i2, ...] triangles

	Texture  *texture.Texture `json:"-"`
	Material Material         `json:"material"`

	// Placement transform applied by the renderer, not baked into the
	// vertex data. Rotation is Euler angles in degrees.
	Rotation [3]float64 `json:"rotation"`
	Position [3]float64 `json:"position"`

	released  bool
	onRelease []func()
}

// Material describes how the surface is shaded.
type Material struct {
	UseNormalMap bool `json:"useNormalMap"`
	// NormalMapStrength only applies when UseNormalMap is set. The source
	// photograph itself is reused as the normal map input; this is a
	// visual approximation, not a derived normal map.
	NormalMapStrength float64 `json:"normalMapStrength"`
}

// VertexCount returns the number of vertices.
func (s *Surface) VertexCount() int {
	return len(s.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (s *Surface) TriangleCount() int {
	return len(s.Indices) / 3
}

// IsEmpty returns true if the surface has no geometry.
func (s *Surface) IsEmpty() bool {
	return len(s.Vertices) == 0
}

// Clone returns a deep copy of the surface's geometry and material.
// The texture is shared: decoded images are immutable here, and the
// clone owns only its own buffers.
func (s *Surface) Clone() *Surface {
	c := &Surface{
		GridWidth:  s.GridWidth,
		GridHeight: s.GridHeight,
		Vertices:   append([]float32(nil), s.Vertices...),
		Normals:    append([]float32(nil), s.Normals...),
		UVs:        append([]float32(nil), s.UVs...),
		Indices:    append([]uint32(nil), s.Indices...),
		Texture:    s.Texture,
		Material:   s.Material,
		Rotation:   s.Rotation,
		Position:   s.Position,
	}
	return c
}

// OnRelease registers a hook invoked exactly once when the surface's
// resources are released. Renderer bindings use this to drop GPU-backed
// buffers and materials tied to the surface.
func (s *Surface) OnRelease(fn func()) {
	s.onRelease = append(s.onRelease, fn)
}

// Release frees the surface's geometry buffers and runs registered
// release hooks. Safe to call more than once; only the first call acts.
// The texture image is not owned by a single surface and is left alone.
func (s *Surface) Release() {
	if s.released {
		return
	}
	s.released = true
	for _, fn := range s.onRelease {
		fn()
	}
	s.onRelease = nil
	s.Vertices = nil
	s.Normals = nil
	s.UVs = nil
	s.Indices = nil
}

// Released reports whether Release has been called.
func (s *Surface) Released() bool {
	return s.released
}
