package detections

import (
	"context"
	"fmt"
	"image"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/Tutortoise/fracture-detection-service/models"
)

// YOLOConfig configures a YOLO detection model exported to ONNX.
type YOLOConfig struct {
	ModelPath string
	// LabelsPath is a one-label-per-line file. Empty means DefaultLabels.
	LabelsPath     string
	RuntimeLibrary string
	InputSize      int
	IoUThreshold   float32
	PoolSize       int
	// Threads is the intra-op thread count of each session.
	Threads        int
	AcquireTimeout time.Duration
	Logger         *logrus.Logger
}

// YOLO is a Model backed by a pool of onnxruntime sessions.
type YOLO struct {
	cfg    YOLOConfig
	labels []string
	layout outputLayout
	pool   *SessionPool
	log    *logrus.Entry

	// inflight counts forward passes still holding a session.
	inflight  sync.WaitGroup
	closeOnce sync.Once
}

type runResult struct {
	preds       []Prediction
	err         error
	inference   time.Duration
	postprocess time.Duration
}

// OpenYOLO loads the model artifact and prepares its session pool. Every
// failure is reported as *ModelLoadError.
func OpenYOLO(cfg YOLOConfig) (*YOLO, error) {
	if cfg.InputSize <= 0 {
		cfg.InputSize = DefaultInputSize
	}
	if cfg.IoUThreshold <= 0 {
		cfg.IoUThreshold = DefaultIoUThreshold
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	if cfg.Threads <= 0 {
		cfg.Threads = max(1, runtime.NumCPU()/cfg.PoolSize)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	loadErr := func(cause error) error {
		return &ModelLoadError{Path: cfg.ModelPath, Cause: cause}
	}

	if cfg.InputSize%strides[len(strides)-1] != 0 {
		return nil, loadErr(fmt.Errorf("input size %d is not a multiple of %d", cfg.InputSize, strides[len(strides)-1]))
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, loadErr(fmt.Errorf("model file not found: %w", err))
	}

	labels := DefaultLabels
	if cfg.LabelsPath != "" {
		var err error
		labels, err = LoadLabels(cfg.LabelsPath)
		if err != nil {
			return nil, loadErr(fmt.Errorf("labels: %w", err))
		}
	}

	if err := acquireRuntime(cfg.RuntimeLibrary); err != nil {
		return nil, loadErr(fmt.Errorf("initialize onnxruntime: %w", err))
	}

	shape := sessionShape{
		inputSize:  cfg.InputSize,
		numClasses: len(labels),
		threads:    cfg.Threads,
	}
	pool, err := NewSessionPool(cfg.PoolSize, cfg.AcquireTimeout, func() (*ModelSession, error) {
		session, err := newSession(cfg.ModelPath, shape)
		if err != nil {
			return nil, err
		}
		if err := session.warmUp(); err != nil {
			session.Destroy()
			return nil, fmt.Errorf("warm up session: %w", err)
		}
		return session, nil
	})
	if err != nil {
		releaseRuntime()
		return nil, loadErr(fmt.Errorf("%w (does the model have %d classes?)", err, len(labels)))
	}

	y := &YOLO{
		cfg:    cfg,
		labels: labels,
		layout: outputLayout{numClasses: len(labels), numAnchors: shape.numAnchors()},
		pool:   pool,
		log:    cfg.Logger.WithField("model", cfg.ModelPath),
	}
	y.log.WithFields(logrus.Fields{
		"classes":    len(labels),
		"input_size": cfg.InputSize,
		"sessions":   cfg.PoolSize,
	}).Info("Model loaded")

	return y, nil
}

// Predict reads the image at path, runs one forward pass and returns the
// surviving predictions sorted by confidence. The call returns early when
// ctx is done; the session is returned to the pool once the run finishes.
func (y *YOLO) Predict(ctx context.Context, path string, threshold float32) ([]Prediction, error) {
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}

	prepStart := time.Now()
	src, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read staged image: %w", err)
	}
	lb := newLetterbox(src, y.cfg.InputSize)
	preprocess := time.Since(prepStart)

	// counted before Acquire so Close cannot miss a session handed out
	// while it is shutting the pool down
	y.inflight.Add(1)
	session, err := y.pool.Acquire(ctx)
	if err != nil {
		y.inflight.Done()
		return nil, err
	}

	results := make(chan runResult, 1)
	go func() {
		defer y.inflight.Done()
		defer y.pool.Release(session)
		results <- y.run(session, lb, threshold)
	}()

	select {
	case res := <-results:
		y.log.WithFields(logrus.Fields{
			"preprocess":  preprocess,
			"inference":   res.inference,
			"postprocess": res.postprocess,
			"predictions": len(res.preds),
		}).Debug("Forward pass")
		return res.preds, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (y *YOLO) run(session *ModelSession, lb letterbox, threshold float32) runResult {
	fillInput(lb.img, session.Input.GetData())

	inferStart := time.Now()
	if err := session.Session.Run(); err != nil {
		return runResult{err: fmt.Errorf("model inference: %w", err)}
	}
	inference := time.Since(inferStart)

	postStart := time.Now()
	preds, err := decodeOutput(session.Output.GetData(), y.layout, lb, threshold, y.cfg.IoUThreshold)
	if err != nil {
		return runResult{err: fmt.Errorf("process predictions: %w", err)}
	}

	return runResult{
		preds:       preds,
		inference:   inference,
		postprocess: time.Since(postStart),
	}
}

func (y *YOLO) Plot(img image.Image, dets []models.Detection) image.Image {
	return Annotate(img, dets)
}

func (y *YOLO) ClassName(id int) string {
	if id >= 0 && id < len(y.labels) {
		return y.labels[id]
	}
	return fmt.Sprintf("class_%d", id)
}

func (y *YOLO) Labels() []string {
	return append([]string(nil), y.labels...)
}

func (y *YOLO) Metrics() PoolSnapshot {
	return y.pool.Metrics()
}

// Close destroys every session and releases the runtime environment. It
// waits for forward passes that are still running, including those whose
// callers already gave up.
func (y *YOLO) Close() error {
	y.closeOnce.Do(func() {
		// idle sessions go now; busy ones are destroyed on Release
		y.pool.Destroy()
		y.inflight.Wait()
		releaseRuntime()
		y.log.Info("Model released")
	})
	return nil
}
