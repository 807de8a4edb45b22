package detections

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// Tensor names of a YOLO detection export.
const (
	inputName  = "images"
	outputName = "output0"
)

// ModelSession is one runtime session with its bound input and output
// tensors. A session serves one forward pass at a time.
type ModelSession struct {
	Session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Output  *ort.Tensor[float32]
}

// Destroy releases whatever part of the session was created. It is safe
// on a nil or partially built session.
func (m *ModelSession) Destroy() {
	if m == nil {
		return
	}
	if m.Session != nil {
		m.Session.Destroy()
		m.Session = nil
	}
	if m.Input != nil {
		m.Input.Destroy()
		m.Input = nil
	}
	if m.Output != nil {
		m.Output.Destroy()
		m.Output = nil
	}
}

// sessionShape describes the tensors of a YOLO detection export:
// input "images" (1, 3, size, size) and output "output0" (1, 4+classes, anchors).
type sessionShape struct {
	inputSize  int
	numClasses int
	threads    int
}

func (s sessionShape) numAnchors() int {
	n := 0
	for _, stride := range strides {
		g := s.inputSize / stride
		n += g * g
	}
	return n
}

// newSession builds one session for shape. Tensors created before a
// failure are destroyed before it returns.
func newSession(modelPath string, shape sessionShape) (_ *ModelSession, err error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	if shape.threads > 0 {
		if err := options.SetIntraOpNumThreads(shape.threads); err != nil {
			return nil, fmt.Errorf("error setting intra-op threads: %w", err)
		}
		if err := options.SetInterOpNumThreads(1); err != nil {
			return nil, fmt.Errorf("error setting inter-op threads: %w", err)
		}
	}

	m := &ModelSession{}
	defer func() {
		if err != nil {
			m.Destroy()
		}
	}()

	size := int64(shape.inputSize)
	if m.Input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size)); err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}
	outputShape := ort.NewShape(1, int64(4+shape.numClasses), int64(shape.numAnchors()))
	if m.Output, err = ort.NewEmptyTensor[float32](outputShape); err != nil {
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	m.Session, err = ort.NewAdvancedSession(
		modelPath,
		[]string{inputName},
		[]string{outputName},
		[]ort.ArbitraryTensor{m.Input},
		[]ort.ArbitraryTensor{m.Output},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("error creating session for %s: %w", modelPath, err)
	}
	return m, nil
}

// warmUp runs one inference on a zeroed input so the first request does
// not pay for lazy initialization inside the runtime.
func (m *ModelSession) warmUp() error {
	clear(m.Input.GetData())
	return m.Session.Run()
}
