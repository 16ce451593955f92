// Package studio is the application controller. It owns the live surface
// and the current parameters as explicit state, serializes user-triggered
// actions, and wires the inference, conversion and export stages together
// without touching any rendering context.
package studio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/papilink/relief/pkg/depth"
	"github.com/papilink/relief/pkg/export"
	"github.com/papilink/relief/pkg/inference"
	"github.com/papilink/relief/pkg/mesh"
	"github.com/papilink/relief/pkg/solid"
	"github.com/papilink/relief/pkg/texture"
)

// ErrExportInFlight is returned when an export is requested while a
// previous one has not finished. An in-flight export cannot be aborted.
var ErrExportInFlight = errors.New("an export is already in flight")

// ErrNothingToAdjust is returned when Adjust runs before any Generate.
var ErrNothingToAdjust = errors.New("no depth field available: generate a surface first")

// FrameHint tells the renderer collaborator how to re-frame its camera
// after a rebuild.
type FrameHint struct {
	Center [3]float64 `json:"center"`
	Size   [3]float64 `json:"size"`
	Radius float64    `json:"radius"`
}

// Studio holds the application state. All operations are serialized: one
// conversion or one export at a time, never both against the same surface.
type Studio struct {
	estimator inference.Estimator
	preparer  *export.Preparer
	logger    *zap.Logger

	mu            sync.Mutex
	surface       *mesh.Surface
	field         *depth.Field // retained so slider adjustments rebuild without re-inference
	tex           *texture.Texture
	params        mesh.Parameters
	releaseNotify func()

	exporting atomic.Bool
}

// New creates a Studio around its collaborators.
func New(estimator inference.Estimator, serializer export.Serializer, defaults mesh.Parameters, logger *zap.Logger) *Studio {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Studio{
		estimator: estimator,
		preparer:  export.NewPreparer(serializer, logger),
		logger:    logger,
		params:    defaults,
	}
}

// Generate runs depth inference on the photo and replaces the live
// surface. On any failure the previous surface stays untouched and
// renderable. On success the previous surface's resources are released
// before the new one is installed.
func (s *Studio) Generate(ctx context.Context, photo []byte, sourceFile string, params mesh.Parameters) (FrameHint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.estimator == nil || !s.estimator.Ready() {
		return FrameHint{}, &inference.ModelNotReadyError{}
	}

	field, err := s.estimator.EstimateDepth(ctx, photo)
	if err != nil {
		return FrameHint{}, fmt.Errorf("generate: %w", err)
	}

	tex, err := texture.Decode(photo, sourceFile)
	if err != nil {
		return FrameHint{}, fmt.Errorf("generate: %w", err)
	}

	surface, err := mesh.BuildSurface(field, tex, params)
	if err != nil {
		return FrameHint{}, fmt.Errorf("generate: %w", err)
	}

	s.install(surface, field, tex, params)
	s.logger.Info("surface generated",
		zap.String("source", sourceFile),
		zap.Int("vertices", surface.VertexCount()),
		zap.Int("triangles", surface.TriangleCount()),
	)
	return frameHint(surface), nil
}

// Adjust rebuilds the surface from the retained depth field with new
// parameters. Only heights and normals change; grid connectivity and
// texture stay fixed.
func (s *Studio) Adjust(params mesh.Parameters) (FrameHint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.field == nil {
		return FrameHint{}, ErrNothingToAdjust
	}

	surface, err := mesh.BuildSurface(s.field, s.tex, params)
	if err != nil {
		return FrameHint{}, fmt.Errorf("adjust: %w", err)
	}

	s.install(surface, s.field, s.tex, params)
	return frameHint(surface), nil
}

// NotifyRelease registers fn to run whenever an installed surface's
// resources are released. The renderer binding uses it to drop GPU-side
// buffers and materials tied to the replaced surface.
func (s *Studio) NotifyRelease(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseNotify = fn
}

// install replaces the live surface, releasing the previous one's
// resources first. Callers hold the mutex.
func (s *Studio) install(surface *mesh.Surface, field *depth.Field, tex *texture.Texture, params mesh.Parameters) {
	if s.surface != nil {
		s.surface.Release()
	}
	if s.releaseNotify != nil {
		surface.OnRelease(s.releaseNotify)
	}
	s.surface = surface
	s.field = field
	s.tex = tex
	s.params = params
}

// Export validates and serializes the live surface to a binary glTF byte
// stream. The live surface is cloned, never mutated, and keeps rendering
// throughout. Returns the bytes and a suggested download filename.
func (s *Studio) Export(ctx context.Context) ([]byte, string, error) {
	if !s.exporting.CompareAndSwap(false, true) {
		return nil, "", ErrExportInFlight
	}
	defer s.exporting.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()

	pkg, err := s.preparer.Prepare(s.surface)
	if err != nil {
		return nil, "", err
	}

	data, err := s.preparer.Serialize(ctx, pkg)
	if err != nil {
		return nil, "", err
	}
	return data, export.SuggestedFilename(pkg.Meta), nil
}

// PreviewSolid meshes the retained relief as a watertight solid for
// display, so the printable geometry can be inspected before writing an
// STL. The live surface is not touched; the preview mesh is a standalone
// flat-shaded surface. Needs a prior Generate, like Adjust does.
func (s *Studio) PreviewSolid(cells int, baseThickness float64) (*mesh.Surface, FrameHint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.field == nil {
		return nil, FrameHint{}, ErrNothingToAdjust
	}

	relief, err := solid.NewRelief(s.field, s.params, baseThickness)
	if err != nil {
		return nil, FrameHint{}, fmt.Errorf("preview solid: %w", err)
	}

	preview := relief.ToMesh(cells)
	s.logger.Debug("solid previewed",
		zap.Int("triangles", preview.TriangleCount()),
	)
	return preview, frameHint(preview), nil
}

// ExportSolid writes the retained relief as a watertight STL into dir and
// returns the file path. This is the 3D-printing path; it needs a prior
// Generate, like Adjust does.
func (s *Studio) ExportSolid(dir string, cells int, baseThickness float64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.field == nil {
		return "", ErrNothingToAdjust
	}

	relief, err := solid.NewRelief(s.field, s.params, baseThickness)
	if err != nil {
		return "", fmt.Errorf("export solid: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("relief_%s.stl", ksuid.New().String()))
	if err := relief.SaveSTL(path, cells); err != nil {
		return "", fmt.Errorf("export solid: %w", err)
	}

	s.logger.Info("solid exported", zap.String("path", path))
	return path, nil
}

// Surface returns the live surface, or nil before the first Generate.
func (s *Studio) Surface() *mesh.Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface
}

// Parameters returns the parameters the live surface was built with.
func (s *Studio) Parameters() mesh.Parameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// SetTextureCap overrides the exported texture's longest-side cap.
func (s *Studio) SetTextureCap(max int) {
	s.preparer.SetTextureCap(max)
}

// Exporting reports whether an export is in flight, so the UI can disable
// its export trigger.
func (s *Studio) Exporting() bool {
	return s.exporting.Load()
}

func frameHint(surface *mesh.Surface) FrameHint {
	bounds := surface.Bounds()
	return FrameHint{
		Center: bounds.Center(),
		Size:   bounds.Size(),
		Radius: surface.BoundingSphere().Radius,
	}
}
