package main

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"github.com/papilink/relief/pkg/config"
	"github.com/papilink/relief/pkg/export"
	"github.com/papilink/relief/pkg/inference"
	"github.com/papilink/relief/pkg/mesh"
	"github.com/papilink/relief/pkg/studio"
)

// App is the Wails backend. It exposes methods to the frontend via
// bindings and forwards state changes as runtime events.
type App struct {
	ctx    context.Context
	cfg    *config.Config
	logger *zap.Logger
	client *inference.Client
	studio *studio.Studio
}

// SurfaceResult is the JSON-serializable outcome of a generate or adjust
// call: the mesh payload for the renderer plus a camera-framing hint.
type SurfaceResult struct {
	Surface *mesh.Surface    `json:"surface,omitempty"`
	Hint    studio.FrameHint `json:"hint"`
	Error   string           `json:"error,omitempty"`
}

// ExportResult carries the produced GLB back to the frontend's
// file-download collaborator.
type ExportResult struct {
	FileName string `json:"fileName,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"` // base64 GLB bytes
	Error    string `json:"error,omitempty"`
}

// SolidResult reports where the printable STL was written.
type SolidResult struct {
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewApp wires the studio to the configured collaborators.
func NewApp(cfg *config.Config, logger *zap.Logger) *App {
	client := inference.NewClient(inference.ClientConfig{
		Endpoint: cfg.Inference.Endpoint,
		ModelURL: cfg.Inference.ModelURL,
		GridSize: cfg.Inference.GridSize,
		Timeout:  cfg.Inference.Timeout,
		Policy: inference.RetryPolicy{
			MaxAttempts:  cfg.Inference.MaxAttempts,
			InitialDelay: cfg.Inference.InitialDelay,
			MaxDelay:     cfg.Inference.MaxDelay,
			Multiplier:   2.0,
			Jitter:       true,
		},
	}, logger)

	defaults := mesh.Parameters{
		DepthScale:   cfg.Mesh.DepthScale,
		BaseHeight:   cfg.Mesh.BaseHeight,
		UseNormalMap: cfg.Mesh.UseNormalMap,
		AutoCenter:   cfg.Mesh.AutoCenter,
	}

	st := studio.New(client, export.NewGLBSerializer(logger), defaults, logger)
	st.SetTextureCap(cfg.Export.MaxTextureSize)

	a := &App{
		cfg:    cfg,
		logger: logger,
		client: client,
		studio: st,
	}
	// The frontend drops GPU buffers tied to a replaced surface on this
	// event.
	st.NotifyRelease(func() { a.emit("surface:released") })
	return a
}

// startup is called by Wails on app startup. Model loading runs in the
// background so the window appears immediately; the frontend is told when
// the model becomes usable.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	go func() {
		if err := a.client.Load(ctx); err != nil {
			a.emit("model:error", err.Error())
			return
		}
		a.emit("model:ready")
	}()
}

// shutdown is called by Wails when the window closes.
func (a *App) shutdown(ctx context.Context) {
	_ = a.logger.Sync()
}

// emit forwards an event to the frontend when running under Wails.
func (a *App) emit(name string, data ...interface{}) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, name, data...)
}

// ModelReady reports whether depth inference is available.
func (a *App) ModelReady() bool {
	return a.client.Ready()
}

// Generate converts a base64-encoded photo into a new textured surface.
func (a *App) Generate(photoBase64, sourceFile string, params mesh.Parameters) SurfaceResult {
	photo, err := base64.StdEncoding.DecodeString(photoBase64)
	if err != nil {
		return SurfaceResult{Error: fmt.Sprintf("decode photo: %v", err)}
	}

	hint, err := a.studio.Generate(a.context(), photo, sourceFile, params)
	if err != nil {
		a.logger.Warn("generate failed", zap.Error(err))
		return SurfaceResult{Error: err.Error()}
	}

	a.emit("surface:rebuilt", hint)
	return SurfaceResult{Surface: a.studio.Surface(), Hint: hint}
}

// Adjust rebuilds the surface with new parameters, reusing the last
// depth field.
func (a *App) Adjust(params mesh.Parameters) SurfaceResult {
	hint, err := a.studio.Adjust(params)
	if err != nil {
		a.logger.Warn("adjust failed", zap.Error(err))
		return SurfaceResult{Error: err.Error()}
	}

	a.emit("surface:rebuilt", hint)
	return SurfaceResult{Surface: a.studio.Surface(), Hint: hint}
}

// Export serializes the live surface to a binary glTF payload for the
// frontend's file-download collaborator.
func (a *App) Export() ExportResult {
	data, name, err := a.studio.Export(a.context())
	if err != nil {
		a.logger.Warn("export failed", zap.Error(err))
		return ExportResult{Error: err.Error()}
	}
	return ExportResult{
		FileName: name,
		MIMEType: export.MIMEType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}
}

// PreviewSolid meshes the printable solid for display, so the watertight
// geometry can be inspected before writing an STL.
func (a *App) PreviewSolid() SurfaceResult {
	surface, hint, err := a.studio.PreviewSolid(a.cfg.Export.SolidCells, a.cfg.Export.BaseThickness)
	if err != nil {
		a.logger.Warn("solid preview failed", zap.Error(err))
		return SurfaceResult{Error: err.Error()}
	}
	return SurfaceResult{Surface: surface, Hint: hint}
}

// ExportSolid writes a watertight printable STL into the export directory.
func (a *App) ExportSolid() SolidResult {
	path, err := a.studio.ExportSolid(a.cfg.Export.Dir, a.cfg.Export.SolidCells, a.cfg.Export.BaseThickness)
	if err != nil {
		a.logger.Warn("solid export failed", zap.Error(err))
		return SolidResult{Error: err.Error()}
	}
	return SolidResult{Path: path}
}

// Exporting lets the frontend disable its export trigger while one runs.
func (a *App) Exporting() bool {
	return a.studio.Exporting()
}

func (a *App) context() context.Context {
	if a.ctx != nil {
		return a.ctx
	}
	return context.Background()
}
