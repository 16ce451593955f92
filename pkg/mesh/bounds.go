package mesh

import "math"

// Box is an axis-aligned bounding box.
type Box struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// Center returns the box's geometric center.
func (b Box) Center() [3]float64 {
	return [3]float64{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// Size returns the box's extent along each axis.
func (b Box) Size() [3]float64 {
	return [3]float64{
		b.Max[0] - b.Min[0],
		b.Max[1] - b.Min[1],
		b.Max[2] - b.Min[2],
	}
}

// Sphere is a bounding sphere.
type Sphere struct {
	Center [3]float64 `json:"center"`
	Radius float64    `json:"radius"`
}

// Bounds computes the axis-aligned bounding box of the vertex positions.
// An empty surface yields the zero box.
func (s *Surface) Bounds() Box {
	if len(s.Vertices) < 3 {
		return Box{}
	}

	b := Box{
		Min: [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	for i := 0; i+2 < len(s.Vertices); i += 3 {
		for axis := 0; axis < 3; axis++ {
			v := float64(s.Vertices[i+axis])
			if v < b.Min[axis] {
				b.Min[axis] = v
			}
			if v > b.Max[axis] {
				b.Max[axis] = v
			}
		}
	}
	return b
}

// BoundingSphere computes a sphere centered on the bounding-box center
// with radius reaching the farthest vertex.
func (s *Surface) BoundingSphere() Sphere {
	if len(s.Vertices) < 3 {
		return Sphere{}
	}

	center := s.Bounds().Center()
	var maxSq float64
	for i := 0; i+2 < len(s.Vertices); i += 3 {
		dx := float64(s.Vertices[i]) - center[0]
		dy := float64(s.Vertices[i+1]) - center[1]
		dz := float64(s.Vertices[i+2]) - center[2]
		if d := dx*dx + dy*dy + dz*dz; d > maxSq {
			maxSq = d
		}
	}
	return Sphere{Center: center, Radius: math.Sqrt(maxSq)}
}

// Recenter translates every vertex so the bounding box is centered at
// the origin. Recentring twice is a no-op the second time.
func (s *Surface) Recenter() {
	center := s.Bounds().Center()
	if center == ([3]float64{}) {
		return
	}
	for i := 0; i+2 < len(s.Vertices); i += 3 {
		s.Vertices[i] -= float32(center[0])
		s.Vertices[i+1] -= float32(center[1])
		s.Vertices[i+2] -= float32(center[2])
	}
}
