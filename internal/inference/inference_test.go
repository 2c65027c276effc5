package inference

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/Brownie44l1/screen-detect/internal/apperr"
	"github.com/Brownie44l1/screen-detect/internal/model"
	"github.com/Brownie44l1/screen-detect/internal/model/modeltest"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newService(t *testing.T, engine *modeltest.Classifier, withArtifact bool) (*Service, *modeltest.Loader) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "screen_detector.onnx")
	if withArtifact {
		require.NoError(t, modeltest.WriteArtifact(path))
	}
	loader := &modeltest.Loader{Classifier: engine}
	reg := model.NewRegistry(path, loader.Load, nil)
	return NewService(reg, model.DefaultMetadata(), nil), loader
}

func TestPreprocessSolidRed(t *testing.T) {
	meta := model.DefaultMetadata()
	input := Preprocess(solidImage(10, 10, color.RGBA{R: 255, A: 255}), meta)

	require.Len(t, input, 224*224*3)
	for i := 0; i < len(input); i += 3 {
		assert.InDelta(t, 1.0, input[i], 0.01)
		assert.InDelta(t, 0.0, input[i+1], 0.01)
		assert.InDelta(t, 0.0, input[i+2], 0.01)
	}
}

func TestPreprocessNCHW(t *testing.T) {
	meta := model.DefaultMetadata()
	meta.Layout = model.LayoutNCHW
	meta.ImageSize = 8
	input := Preprocess(solidImage(4, 4, color.RGBA{G: 255, A: 255}), meta)

	require.Len(t, input, 3*8*8)
	plane := 8 * 8
	for i := 0; i < plane; i++ {
		assert.InDelta(t, 0.0, input[i], 0.01)
		assert.InDelta(t, 1.0, input[plane+i], 0.01)
		assert.InDelta(t, 0.0, input[2*plane+i], 0.01)
	}
}

func TestPreprocessDropsAlpha(t *testing.T) {
	meta := model.DefaultMetadata()
	meta.ImageSize = 2
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:i+4], []byte{0, 0, 255, 0})
	}

	input := Preprocess(img, meta)
	for i := 0; i < len(input); i += 3 {
		assert.InDelta(t, 1.0, input[i+2], 0.01, "transparent blue stays blue")
	}
}

func TestPreprocessIsDeterministic(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 31, 17))
	for i := range img.Pix {
		img.Pix[i] = byte(i * 7)
	}
	meta := model.DefaultMetadata()
	assert.Equal(t, Preprocess(img, meta), Preprocess(img, meta))
}

func TestPredictSolidRed(t *testing.T) {
	engine := &modeltest.Classifier{Output: 0.83}
	svc, _ := newService(t, engine, true)

	p, err := svc.Predict(encodePNG(t, solidImage(10, 10, color.RGBA{R: 255, A: 255})))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, p, 0.0)
	assert.LessOrEqual(t, p, 1.0)
	assert.InDelta(t, 0.83, p, 1e-6)
	assert.Len(t, engine.LastInput(), 224*224*3)
}

func TestPredictBMP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, solidImage(5, 5, color.RGBA{B: 255, A: 255})))
	svc, _ := newService(t, &modeltest.Classifier{Output: 0.1}, true)

	p, err := svc.Predict(buf.Bytes())
	require.NoError(t, err)
	assert.InDelta(t, 0.1, p, 1e-6)
}

func TestPredictCorruptedImage(t *testing.T) {
	engine := &modeltest.Classifier{}
	svc, loader := newService(t, engine, true)

	_, err := svc.Predict([]byte("\x89PNG\r\n\x1a\nnot really a png"))
	assert.ErrorIs(t, err, apperr.ErrInvalidImage)
	assert.Equal(t, 0, engine.Calls())
	assert.Equal(t, 0, loader.Loads(), "a bad upload must not trigger a model load")
}

func TestPredictMissingArtifact(t *testing.T) {
	svc, _ := newService(t, &modeltest.Classifier{}, false)

	_, err := svc.Predict(encodePNG(t, solidImage(3, 3, color.White)))
	assert.ErrorIs(t, err, apperr.ErrMissingArtifact)
}

func TestPredictTensorValidatesLength(t *testing.T) {
	svc, _ := newService(t, &modeltest.Classifier{}, true)

	_, err := svc.PredictTensor(make([]float32, 10))
	assert.ErrorIs(t, err, apperr.ErrInvalidImage)
}

func TestPredictEngineFailure(t *testing.T) {
	svc, _ := newService(t, &modeltest.Classifier{Err: assert.AnError}, true)

	_, err := svc.PredictTensor(make([]float32, svc.Metadata().InputLen()))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, apperr.Unknown, apperr.KindOf(err))
}

func TestHealthCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screen_detector.onnx")
	loader := &modeltest.Loader{Classifier: &modeltest.Classifier{}}
	health := NewHealthCheck(model.NewRegistry(path, loader.Load, nil))

	err := health.Check()
	assert.ErrorIs(t, err, apperr.ErrMissingArtifact)

	require.NoError(t, modeltest.WriteArtifact(path))
	assert.NoError(t, health.Check())
	assert.Equal(t, 0, loader.Classifier.Calls(), "a health check never runs inference")
}

func TestDecodeRejectsOversizedDimensions(t *testing.T) {
	data := encodePNG(t, solidImage(10, 10, color.White))

	_, _, err := Decode(data, 99)
	assert.ErrorIs(t, err, apperr.ErrInvalidImage)
	assert.Contains(t, err.Error(), "10x10 exceeds the 99 pixel limit")

	img, format, err := Decode(data, 100)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 10, img.Bounds().Dx())
}

func TestPredictHonorsMaxPixels(t *testing.T) {
	engine := &modeltest.Classifier{Output: 0.5}
	svc, loader := newService(t, engine, true)
	svc.WithMaxPixels(50)

	_, err := svc.Predict(encodePNG(t, solidImage(10, 10, color.White)))
	assert.ErrorIs(t, err, apperr.ErrInvalidImage)
	assert.Equal(t, 0, loader.Loads())

	_, err = svc.Predict(encodePNG(t, solidImage(5, 5, color.White)))
	assert.NoError(t, err)
}

func TestPredictAfterRegistryClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screen_detector.onnx")
	require.NoError(t, modeltest.WriteArtifact(path))
	reg := model.NewRegistry(path, (&modeltest.Loader{Classifier: &modeltest.Classifier{}}).Load, nil)
	svc := NewService(reg, model.DefaultMetadata(), nil)
	_, err := reg.Acquire()
	require.NoError(t, err)
	require.NoError(t, reg.Close())

	_, err = svc.PredictTensor(make([]float32, svc.Metadata().InputLen()))
	assert.ErrorIs(t, err, model.ErrClosed)
}
