package ml_models

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"

	"github.com/mattn/go-tflite"
	"github.com/nfnt/resize"
	"go.uber.org/zap"
)

// ImageClassifier emits a binary class index from raw image bytes.
// Index 0 means disease-positive. This polarity is the opposite of the
// tabular model and must not be unified.
type ImageClassifier interface {
	Predict(imageData []byte) (int, error)
}

const (
	imageInputSize  = 224
	imageNumClasses = 2
)

// CNNClassifier runs the MobileNet-based skin model through TFLite.
type CNNClassifier struct {
	model       *tflite.Model
	interpreter *tflite.Interpreter
	logger      *zap.Logger
}

// LoadCNNClassifier reads the image model artifact from dir and prepares an
// interpreter with allocated tensors.
func LoadCNNClassifier(dir string, logger *zap.Logger) (*CNNClassifier, error) {
	path := filepath.Join(dir, "mobilenet_lumpy_skin.tflite")
	logger.Info("Loading image model", zap.String("path", path))

	model := tflite.NewModelFromFile(path)
	if model == nil {
		return nil, fmt.Errorf("%w: could not load image model from %s", ErrModelLoading, path)
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(4)
	defer options.Delete()

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, fmt.Errorf("%w: could not create interpreter for image model", ErrModelLoading)
	}

	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return nil, fmt.Errorf("%w: could not allocate tensors for image model", ErrModelLoading)
	}

	logger.Info("Image model loaded successfully")
	return &CNNClassifier{model: model, interpreter: interpreter, logger: logger}, nil
}

// Close releases the interpreter and model.
func (c *CNNClassifier) Close() {
	if c.interpreter != nil {
		c.interpreter.Delete()
		c.interpreter = nil
	}
	if c.model != nil {
		c.model.Delete()
		c.model = nil
	}
}

// Predict decodes the image, resizes it to the model resolution, normalizes
// pixels to [-1, 1] and returns the argmax class index.
func (c *CNNClassifier) Predict(imageData []byte) (int, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return 0, fmt.Errorf("%w: could not decode image: %v", ErrPrediction, err)
	}

	input := c.interpreter.GetInputTensor(0)
	if input == nil {
		return 0, fmt.Errorf("%w: image model has no input tensor", ErrPrediction)
	}
	in := input.Float32s()
	if len(in) != imageInputSize*imageInputSize*3 {
		return 0, fmt.Errorf("%w: unexpected input tensor size %d", ErrPrediction, len(in))
	}

	fillInputTensor(in, img)

	if status := c.interpreter.Invoke(); status != tflite.OK {
		return 0, fmt.Errorf("%w: image model invocation failed", ErrPrediction)
	}

	output := c.interpreter.GetOutputTensor(0)
	if output == nil {
		return 0, fmt.Errorf("%w: image model has no output tensor", ErrPrediction)
	}
	scores := output.Float32s()
	if len(scores) < imageNumClasses {
		return 0, fmt.Errorf("%w: unexpected output tensor size %d", ErrPrediction, len(scores))
	}

	result := argmax(scores[:imageNumClasses])
	c.logger.Info("Image model prediction",
		zap.Int("class", result),
		zap.Bool("disease_positive", result == 0))
	return result, nil
}

// fillInputTensor writes the resized image into the tensor buffer in HWC
// order with MobileNetV2 normalization (pixel/127.5 - 1).
func fillInputTensor(in []float32, img image.Image) {
	resized := resize.Resize(imageInputSize, imageInputSize, img, resize.Bilinear)
	idx := 0
	for y := 0; y < imageInputSize; y++ {
		for x := 0; x < imageInputSize; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			in[idx] = float32(r>>8)/127.5 - 1.0
			in[idx+1] = float32(g>>8)/127.5 - 1.0
			in[idx+2] = float32(b>>8)/127.5 - 1.0
			idx += 3
		}
	}
}

func argmax(scores []float32) int {
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return best
}
