package ml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var ortInit sync.Mutex

// initRuntime points onnxruntime_go at the shared library and initializes the
// environment once per process.
func initRuntime(libPath string) error {
	ortInit.Lock()
	defer ortInit.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath == "" {
		libPath = os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")
	}
	if libPath == "" {
		return errors.New("onnxruntime shared library not configured; set onnxruntime_lib or ONNXRUNTIME_SHARED_LIBRARY_PATH")
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// ONNXClassifier runs an exported binary classifier. The graph takes one float32
// input of shape [1, n] and yields [1, 2] class probabilities.
type ONNXClassifier struct {
	id       string
	features []string
	session  *ort.AdvancedSession
	input    *ort.Tensor[float32]
	output   *ort.Tensor[float32]

	mu sync.Mutex
}

// LoadONNXClassifier opens the model with preallocated tensors.
func LoadONNXClassifier(id, modelPath, libPath string, features []string) (*ONNXClassifier, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("onnx classifier %q: features must be listed in config", id)
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}
	if err := initRuntime(libPath); err != nil {
		return nil, err
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(features))))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 2))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}
	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input"},
		[]string{"probabilities"},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &ONNXClassifier{
		id:       id,
		features: append([]string(nil), features...),
		session:  session,
		input:    input,
		output:   output,
	}, nil
}

func (c *ONNXClassifier) ID() string                 { return c.id }
func (c *ONNXClassifier) RequiredFeatures() []string { return append([]string(nil), c.features...) }

// PredictProba returns the positive-class probability. Sessions share tensors, so runs are serialized.
func (c *ONNXClassifier) PredictProba(ctx context.Context, values []float64) (float64, error) {
	if len(values) != len(c.features) {
		return 0, fmt.Errorf("expected %d features, got %d", len(c.features), len(values))
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	in := c.input.GetData()
	for i, v := range values {
		in[i] = float32(v)
	}
	if err := c.session.Run(); err != nil {
		return 0, fmt.Errorf("onnx run: %w", err)
	}
	return float64(c.output.GetData()[1]), nil
}

// Close releases the session and tensors.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.session != nil {
		errs = append(errs, c.session.Destroy())
	}
	if c.input != nil {
		errs = append(errs, c.input.Destroy())
	}
	if c.output != nil {
		errs = append(errs, c.output.Destroy())
	}
	return errors.Join(errs...)
}
