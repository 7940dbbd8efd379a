// Package app assembles the window, the Vulkan device and the scene, and runs
// the frame loop until the window closes.
package app

import (
	"context"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/playground/camera"
	"github.com/vkngwrapper/playground/config"
	"github.com/vkngwrapper/playground/engine"
	"github.com/vkngwrapper/playground/gpu/vkng"
	"github.com/vkngwrapper/playground/loader"
	"github.com/vkngwrapper/playground/window"
	"golang.org/x/exp/slog"
)

// maxFrameTime caps the step fed to the camera and the light after a stall,
// such as a window drag.
const maxFrameTime = 0.1

type App struct {
	logger *slog.Logger

	window   *window.Window
	instance *vkng.Instance
	device   *engine.Device
	graphics *Graphics
	scene    *Scene
	camera   *camera.Camera
}

// New opens the window and builds everything the frame loop needs. Assets
// named in cfg are decoded before any GPU work starts.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	assets, err := loadAssets(cfg.Assets, logger)
	if err != nil {
		return nil, err
	}

	app := &App{logger: logger}

	app.window, err = window.New(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height)
	if err != nil {
		return nil, err
	}

	app.instance, err = vkng.NewInstance(app.window, vkng.Options{
		ApplicationName: cfg.Window.Title,
		Validation:      cfg.Validation,
		Logger:          logger,
	})
	if err != nil {
		app.Destroy()
		return nil, err
	}

	app.device, err = engine.NewDevice(app.instance, engine.DeviceOptions{Logger: logger})
	if err != nil {
		app.Destroy()
		return nil, err
	}
	logger.Info("selected device", "name", app.device.Properties().Name, "type", app.device.Properties().Type)

	app.graphics, err = NewGraphics(app.device, app.window, os.DirFS(cfg.Shaders))
	if err != nil {
		app.Destroy()
		return nil, err
	}

	app.scene, err = NewScene(app.device, app.graphics.Textures(), assets)
	if err != nil {
		app.Destroy()
		return nil, err
	}

	app.camera = camera.New()
	app.camera.SetPosition(mgl32.Vec3{0, 0, -3})

	return app, nil
}

func loadAssets(cfg config.Assets, logger *slog.Logger) (*loader.Assets, error) {
	if cfg.Model == "" {
		return nil, nil
	}

	req := loader.Request{
		Models:   map[string]string{ModelAsset: cfg.Model},
		Textures: map[string]string{},
	}
	if cfg.Texture != "" {
		req.Textures[TextureAsset] = cfg.Texture
	}

	return loader.Load(context.Background(), os.DirFS("."), req, logger)
}

// Run draws frames until the window asks to close, then waits for the device
// to finish the last of them.
func (a *App) Run() error {
	last := hrtime.Now()
	frames := 0

	for !a.window.ShouldClose() {
		a.window.PollEvents()

		now := hrtime.Now()
		frameTime := float32((now - last).Seconds())
		last = now
		if frameTime > maxFrameTime {
			frameTime = maxFrameTime
		}

		a.camera.ProcessInput(a.window, frameTime)
		a.scene.Update(frameTime)

		drawn, err := a.graphics.DrawFrame(a.camera, a.scene, frameTime)
		if err != nil {
			return err
		}
		if drawn {
			frames++
		}
	}

	a.logger.Debug("frame loop finished", "frames", frames)
	return a.device.WaitIdle()
}

// Destroy tears down in reverse creation order. It is safe on a partly built
// App.
func (a *App) Destroy() {
	if a.scene != nil {
		a.scene.Destroy()
		a.scene = nil
	}
	if a.graphics != nil {
		a.graphics.Destroy()
		a.graphics = nil
	}
	if a.device != nil {
		a.device.Destroy()
		a.device = nil
	}
	if a.instance != nil {
		a.instance.Destroy()
		a.instance = nil
	}
	if a.window != nil {
		a.window.Destroy()
		a.window = nil
	}
}
