// Command adapters lists every Vulkan physical device with the score the
// playground would give it for rendering to a window surface.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/playground/config"
	"github.com/vkngwrapper/playground/engine"
	"github.com/vkngwrapper/playground/gpu/vkng"
	"github.com/vkngwrapper/playground/window"
	"golang.org/x/exp/slog"
)

func printRatings(out io.Writer, ratings []engine.AdapterRating) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tSCORE\tPIPELINE CACHE")
	for _, rating := range ratings {
		score := fmt.Sprint(rating.Score)
		if !rating.Suitable() {
			score = "unsuitable"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rating.Properties.Name, rating.Properties.Type, score, rating.Properties.PipelineCacheUUID)
	}
	return w.Flush()
}

func run() error {
	cfg := config.Default()
	err := cfg.ApplyArgs(os.Args[1:], os.Stdout)
	if errors.Is(err, config.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// Present support is a property of a surface, so rating needs a window.
	surfaceWindow, err := window.New(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height)
	if err != nil {
		return err
	}
	defer surfaceWindow.Destroy()

	instance, err := vkng.NewInstance(surfaceWindow, vkng.Options{
		ApplicationName: cfg.Window.Title,
		Validation:      cfg.Validation,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	defer instance.Destroy()

	ratings, err := engine.RateAdapters(instance)
	if err != nil {
		return err
	}
	return printRatings(os.Stdout, ratings)
}

func main() {
	runtime.LockOSThread()

	err := run()
	if err != nil {
		log.Fatalf("%+v\n", err)
	}
}
