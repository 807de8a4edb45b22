package detections

import (
	"errors"
	"io"
	"sync"
)

// Provider loads a Model on first use and hands out the same instance for
// the lifetime of the process.
type Provider struct {
	path   string
	loader func() (Model, error)

	once  sync.Once
	model Model
	err   error
}

// NewProvider returns a Provider for the artifact at path. loader is called
// at most once.
func NewProvider(path string, loader func() (Model, error)) *Provider {
	return &Provider{
		path:   path,
		loader: loader,
	}
}

// Get returns the cached model, loading it on the first call. A load
// failure is remembered and returned on every later call as *ModelLoadError.
func (p *Provider) Get() (Model, error) {
	p.once.Do(func() {
		model, err := p.loader()
		if err != nil {
			var loadErr *ModelLoadError
			if !errors.As(err, &loadErr) {
				err = &ModelLoadError{Path: p.path, Cause: err}
			}
			p.err = err
			return
		}
		if model == nil {
			p.err = &ModelLoadError{Path: p.path, Cause: errors.New("loader returned no model")}
			return
		}
		p.model = model
	})
	return p.model, p.err
}

// Close releases the model if it was loaded and holds resources.
func (p *Provider) Close() error {
	if closer, ok := p.model.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
