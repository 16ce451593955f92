package mesh

import "math"

// ComputeNormals derives per-vertex normals from displaced positions by
// accumulating the (area-weighted) face normal of every adjacent triangle
// and normalizing the sum. Vertices touched by no face, or by faces that
// cancel out, fall back to +Z.
func ComputeNormals(vertices []float32, indices []uint32) []float32 {
	normals := make([]float32, len(vertices))

	for i := 0; i+2 < len(indices); i += 3 {
		ia, ib, ic := indices[i]*3, indices[i+1]*3, indices[i+2]*3

		ax, ay, az := float64(vertices[ia]), float64(vertices[ia+1]), float64(vertices[ia+2])
		bx, by, bz := float64(vertices[ib]), float64(vertices[ib+1]), float64(vertices[ib+2])
		cx, cy, cz := float64(vertices[ic]), float64(vertices[ic+1]), float64(vertices[ic+2])

		// Cross product (b-a) × (c-a); length is twice the face area,
		// so accumulating unnormalized weights bigger faces more.
		ux, uy, uz := bx-ax, by-ay, bz-az
		vx, vy, vz := cx-ax, cy-ay, cz-az
		nx := uy*vz - uz*vy
		ny := uz*vx - ux*vz
		nz := ux*vy - uy*vx

		for _, base := range []uint32{ia, ib, ic} {
			normals[base] += float32(nx)
			normals[base+1] += float32(ny)
			normals[base+2] += float32(nz)
		}
	}

	for i := 0; i+2 < len(normals); i += 3 {
		nx, ny, nz := float64(normals[i]), float64(normals[i+1]), float64(normals[i+2])
		length := math.Sqrt(nx*nx + ny*ny + nz*nz)
		if length == 0 {
			normals[i], normals[i+1], normals[i+2] = 0, 0, 1
			continue
		}
		normals[i] = float32(nx / length)
		normals[i+1] = float32(ny / length)
		normals[i+2] = float32(nz / length)
	}

	return normals
}

// RecomputeNormals refreshes the surface's normals in place from its
// current vertex positions.
func (s *Surface) RecomputeNormals() {
	s.Normals = ComputeNormals(s.Vertices, s.Indices)
}
