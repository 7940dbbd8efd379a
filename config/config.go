// Package config holds the playground's settings. Values come from Default,
// then an optional TOML file, then the command line.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/exp/slog"
)

// ErrHelp is returned by ApplyArgs after it has printed the option list.
var ErrHelp = errors.New("help requested")

type Window struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

type Assets struct {
	// Model is an OBJ file. When empty the scene shows a generated sphere.
	Model string `toml:"model"`
	// Texture is a PNG applied to the model.
	Texture string `toml:"texture"`
}

type Config struct {
	Window     Window `toml:"window"`
	Validation bool   `toml:"validation"`
	// Shaders is the directory holding compiled .spv files.
	Shaders  string `toml:"shaders"`
	Assets   Assets `toml:"assets"`
	LogLevel string `toml:"log_level"`
}

func Default() Config {
	return Config{
		Window: Window{
			Title:  "Vulkan Playground",
			Width:  800,
			Height: 600,
		},
		Validation: true,
		Shaders:    "shaders",
		LogLevel:   "info",
	}
}

// Load reads the TOML file at path over Default.
func Load(path string) (Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrap(err, "open config")
	}
	defer file.Close()

	err = cfg.Decode(file)
	return cfg, err
}

// Decode reads TOML from r over the current values. Unknown keys are errors.
func (c *Config) Decode(r io.Reader) error {
	decoder := toml.NewDecoder(r)
	decoder.DisallowUnknownFields()

	err := decoder.Decode(c)
	if err != nil {
		return errors.Wrap(err, "decode config")
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Newf("window size %dx%d is not positive", c.Window.Width, c.Window.Height)
	}
	_, err := c.Level()
	return err
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	if err != nil {
		return level, errors.Wrapf(err, "log level %q", c.LogLevel)
	}
	return level, nil
}

// ApplyArgs applies command line options. A --config file is read first so
// the other options override it.
func (c *Config) ApplyArgs(args []string, out io.Writer) error {
	for i, arg := range args {
		if arg == "--config" {
			if i+1 >= len(args) {
				return errors.New("--config needs a file")
			}

			loaded, err := Load(args[i+1])
			if err != nil {
				return err
			}
			*c = loaded
		}
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--validation" {
			c.Validation = true
		} else if arg == "--no-validation" {
			c.Validation = false
		} else if arg == "--config" {
			i++
		} else if arg == "--width" || arg == "--height" {
			if i+1 >= len(args) {
				return errors.Newf("%s needs a value", arg)
			}
			i++
			value, err := strconv.Atoi(args[i])
			if err != nil {
				return errors.Wrapf(err, "%s", arg)
			}
			if arg == "--width" {
				c.Window.Width = value
			} else {
				c.Window.Height = value
			}
		} else if arg == "--help" || arg == "-h" {
			printUsage(out)
			return ErrHelp
		} else {
			fmt.Fprintf(out, "\nUnrecognized option: %s\n", arg)
			fmt.Fprintln(out, "\nUse --help or -h for option list.")
			return errors.Newf("unrecognized option %s", arg)
		}
	}

	return c.Validate()
}

func printUsage(out io.Writer) {
	lines := []string{
		"\nOptions",
		"\t--config <file>",
		"\t\tRead settings from a TOML file",
		"\t--validation, --no-validation",
		"\t\tEnable or disable the Vulkan validation layers",
		"\t--width <pixels>, --height <pixels>",
		"\t\tInitial window size",
	}
	fmt.Fprintln(out, strings.Join(lines, "\n"))
}
