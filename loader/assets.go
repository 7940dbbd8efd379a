package loader

import (
	"context"
	"io/fs"
	"path"
	"runtime"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/playground/engine"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

// Request names the files to decode, keyed by the name the scene uses for them.
type Request struct {
	Models   map[string]string
	Textures map[string]string
}

// Assets holds decoded data that has not been uploaded yet.
type Assets struct {
	Models   map[string]*MeshData
	Textures map[string]engine.Pixels
}

// Load decodes every file in req from fsys concurrently. The first failure
// cancels the rest.
func Load(ctx context.Context, fsys fs.FS, req Request, logger *slog.Logger) (*Assets, error) {
	if logger == nil {
		logger = slog.Default()
	}

	assets := &Assets{
		Models:   make(map[string]*MeshData, len(req.Models)),
		Textures: make(map[string]engine.Pixels, len(req.Textures)),
	}
	var lock sync.Mutex

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.NumCPU())

	for name, file := range req.Models {
		name, file := name, file
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			mesh, err := loadModel(fsys, file)
			if err != nil {
				return errors.Wrapf(err, "model %q", name)
			}
			logger.Debug("decoded model", "name", name, "vertices", len(mesh.Vertices), "indices", len(mesh.Indices))

			lock.Lock()
			defer lock.Unlock()
			assets.Models[name] = mesh
			return nil
		})
	}

	for name, file := range req.Textures {
		name, file := name, file
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			pixels, err := loadTexture(fsys, file)
			if err != nil {
				return errors.Wrapf(err, "texture %q", name)
			}
			logger.Debug("decoded texture", "name", name, "width", pixels.Width, "height", pixels.Height)

			lock.Lock()
			defer lock.Unlock()
			assets.Textures[name] = pixels
			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}
	return assets, nil
}

// loadModel decodes file and the .mtl beside it, if there is one.
func loadModel(fsys fs.FS, file string) (*MeshData, error) {
	meshFile, err := fsys.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, "open model")
	}
	defer meshFile.Close()

	mtlPath := strings.TrimSuffix(file, path.Ext(file)) + ".mtl"
	matFile, err := fsys.Open(mtlPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(err, "open material")
		}
		return DecodeOBJ(meshFile, nil)
	}
	defer matFile.Close()

	return DecodeOBJ(meshFile, matFile)
}

func loadTexture(fsys fs.FS, file string) (engine.Pixels, error) {
	imageFile, err := fsys.Open(file)
	if err != nil {
		return engine.Pixels{}, errors.Wrap(err, "open texture")
	}
	defer imageFile.Close()

	return DecodePNG(imageFile)
}
