package loader

import (
	"image/color"
	"image/png"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/playground/engine"
)

// DecodePNG reads a PNG image as straight-alpha RGBA8 texels.
func DecodePNG(r io.Reader) (engine.Pixels, error) {
	decodedImage, err := png.Decode(r)
	if err != nil {
		return engine.Pixels{}, errors.Wrap(err, "decode png")
	}

	bounds := decodedImage.Bounds()
	pixels := engine.Pixels{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}
	pixels.Data = make([]byte, 0, pixels.Width*pixels.Height*4)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(decodedImage.At(x, y)).(color.NRGBA)
			pixels.Data = append(pixels.Data, c.R, c.G, c.B, c.A)
		}
	}

	return pixels, nil
}

// SolidPixels is a width by height image of one color.
func SolidPixels(width, height int, c color.NRGBA) engine.Pixels {
	pixels := engine.Pixels{
		Width:  width,
		Height: height,
		Data:   make([]byte, 0, width*height*4),
	}
	for i := 0; i < width*height; i++ {
		pixels.Data = append(pixels.Data, c.R, c.G, c.B, c.A)
	}
	return pixels
}
