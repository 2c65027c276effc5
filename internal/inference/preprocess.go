package inference

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"

	"github.com/Brownie44l1/screen-detect/internal/apperr"
	"github.com/Brownie44l1/screen-detect/internal/model"
)

// DefaultMaxPixels bounds width*height of a decoded image.
const DefaultMaxPixels = 50_000_000

// Decode parses JPEG, PNG, GIF or BMP bytes. The header is read first so an
// image larger than maxPixels is rejected before its pixels are allocated.
// maxPixels <= 0 disables the check.
func Decode(data []byte, maxPixels int64) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperr.E(apperr.InvalidImage, "decode image", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", apperr.Errorf(apperr.InvalidImage, "decode image", "empty image %dx%d", cfg.Width, cfg.Height)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, "", apperr.Errorf(apperr.InvalidImage, "decode image",
			"%dx%d exceeds the %d pixel limit", cfg.Width, cfg.Height, maxPixels)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperr.E(apperr.InvalidImage, "decode image", err)
	}
	return img, format, nil
}

// toRGB copies img into an opaque NRGBA image. Alpha is dropped, not
// blended, so transparent pixels keep their stored color.
func toRGB(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < b.Dy(); y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:y*out.Stride+4*b.Dx()], src.Pix[si:si+4*b.Dx()])
		}
	case *image.YCbCr, *image.Gray, *image.CMYK:
		draw.Draw(out, out.Bounds(), src, b.Min, draw.Src)
	default:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				out.SetNRGBA(x, y, c)
			}
		}
	}
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}

// Preprocess converts img into the classifier's input: RGB, resized to
// meta.ImageSize square with bicubic resampling, scaled to [0,1].
func Preprocess(img image.Image, meta model.Metadata) []float32 {
	size := uint(meta.ImageSize)
	resized := resize.Resize(size, size, toRGB(img), resize.Bicubic)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	input := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			rNorm := float32(r>>8) / 255.0
			gNorm := float32(g>>8) / 255.0
			bNorm := float32(b>>8) / 255.0

			pixel := y*width + x
			if meta.Layout == model.LayoutNCHW {
				input[pixel] = rNorm
				input[plane+pixel] = gNorm
				input[2*plane+pixel] = bNorm
				continue
			}
			input[3*pixel] = rNorm
			input[3*pixel+1] = gNorm
			input[3*pixel+2] = bNorm
		}
	}
	return input
}
