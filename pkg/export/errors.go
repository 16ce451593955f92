package export

import "fmt"

// Pre-export validation failures are distinct, user-reportable conditions.
// They are raised before any cloning or mutation happens.

// MissingGeometryError reports a surface with no geometry attached,
// for example one whose buffers were already released.
type MissingGeometryError struct{}

func (e *MissingGeometryError) Error() string {
	return "surface has no geometry to export"
}

// EmptyMeshError reports a surface whose vertex count is zero.
type EmptyMeshError struct{}

func (e *EmptyMeshError) Error() string {
	return "surface mesh is empty: zero vertices"
}

// MissingTextureError reports a surface with no texture bound.
type MissingTextureError struct{}

func (e *MissingTextureError) Error() string {
	return "surface has no texture bound"
}

// SerializationError wraps a failure from the underlying serializer.
// A failed serialize produces no output bytes.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("export serialization failed: %v", e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}
