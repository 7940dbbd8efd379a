package app

import (
	"image/color"
	"io/fs"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/playground/camera"
	"github.com/vkngwrapper/playground/engine"
	"github.com/vkngwrapper/playground/engine/systems"
	"github.com/vkngwrapper/playground/loader"
)

const (
	// FallbackTexture is drawn on models that carry no texture of their own.
	FallbackTexture = "fallback"

	fieldOfView = 45
	nearPlane   = 0.1
	farPlane    = 100
)

// Graphics holds everything that lives as long as the device and records the
// scene into each frame.
type Graphics struct {
	renderer    *engine.Renderer
	uniforms    *engine.GlobalUniforms
	textures    *engine.TextureManager
	modelSystem *systems.ModelRenderSystem
	lightSystem *systems.PointLightRenderSystem
}

func NewGraphics(device *engine.Device, window engine.Window, shaders fs.FS) (*Graphics, error) {
	g := &Graphics{}

	var err error
	g.renderer, err = engine.NewRenderer(device, window)
	if err != nil {
		return nil, err
	}
	g.renderer.SetClearColor(0.01, 0.01, 0.01, 1)

	g.uniforms, err = engine.NewGlobalUniforms(device)
	if err != nil {
		g.Destroy()
		return nil, err
	}

	g.textures, err = engine.NewTextureManager(device)
	if err != nil {
		g.Destroy()
		return nil, err
	}

	fallback, err := g.textures.Load(FallbackTexture, loader.SolidPixels(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255}))
	if err != nil {
		g.Destroy()
		return nil, err
	}

	g.modelSystem, err = systems.NewModelRenderSystem(device, g.renderer.RenderPass(), shaders,
		g.uniforms.SetLayout(), g.textures.SetLayout(), fallback)
	if err != nil {
		g.Destroy()
		return nil, err
	}

	g.lightSystem, err = systems.NewPointLightRenderSystem(device, g.renderer.RenderPass(), shaders, g.uniforms.SetLayout())
	if err != nil {
		g.Destroy()
		return nil, err
	}

	return g, nil
}

func (g *Graphics) Renderer() *engine.Renderer {
	return g.renderer
}

func (g *Graphics) Textures() *engine.TextureManager {
	return g.textures
}

// DrawFrame renders scene from cam. It reports false when no frame was
// presented because the swapchain was being rebuilt.
func (g *Graphics) DrawFrame(cam *camera.Camera, scene *Scene, frameTime float32) (bool, error) {
	cam.SetPerspective(mgl32.DegToRad(fieldOfView), g.renderer.AspectRatio(), nearPlane, farPlane)

	commandBuffer, ok, err := g.renderer.BeginFrame()
	if err != nil || !ok {
		return false, err
	}

	frame := systems.FrameInfo{
		FrameIndex:    g.renderer.FrameIndex(),
		FrameTime:     frameTime,
		CommandBuffer: commandBuffer,
		Camera:        cam,
		GlobalSet:     g.uniforms.Set(g.renderer.FrameIndex()),
	}

	err = g.uniforms.Write(frame.FrameIndex, scene.Uniforms(cam.Projection(), cam.View()))
	if err != nil {
		return false, err
	}

	err = g.renderer.BeginRenderPass(commandBuffer)
	if err != nil {
		return false, err
	}

	err = g.modelSystem.Render(frame, scene.Models)
	if err != nil {
		return false, err
	}
	g.lightSystem.Render(frame)

	g.renderer.EndRenderPass(commandBuffer)

	return true, g.renderer.EndFrame()
}

// Destroy releases everything in reverse creation order. The device must be
// idle.
func (g *Graphics) Destroy() {
	if g.lightSystem != nil {
		g.lightSystem.Destroy()
		g.lightSystem = nil
	}
	if g.modelSystem != nil {
		g.modelSystem.Destroy()
		g.modelSystem = nil
	}
	if g.textures != nil {
		g.textures.Destroy()
		g.textures = nil
	}
	if g.uniforms != nil {
		g.uniforms.Destroy()
		g.uniforms = nil
	}
	if g.renderer != nil {
		g.renderer.Destroy()
		g.renderer = nil
	}
}
