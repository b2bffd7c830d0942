package indicator

import (
	"sync"

	"github.com/rxtech-lab/argo-robot/pkg/errors"
)

// Definition is a registered indicator: a window function and the number of
// trailing bars it reads.
type Definition struct {
	Name   string
	Fn     WindowFunc
	Period int
}

// IndicatorRegistry manages the indicators known to an engine.
type IndicatorRegistry interface {
	RegisterIndicator(def Definition) error
	GetIndicator(name string) (Definition, error)
	ListIndicators() []Definition
	RemoveIndicator(name string) error
}

// IndicatorRegistryV1 keeps definitions in registration order.
type IndicatorRegistryV1 struct {
	indicators map[string]Definition
	order      []string
	mu         sync.RWMutex
}

// NewIndicatorRegistry creates a new indicator registry.
func NewIndicatorRegistry() IndicatorRegistry {
	return &IndicatorRegistryV1{
		indicators: make(map[string]Definition),
		order:      []string{},
		mu:         sync.RWMutex{},
	}
}

// RegisterIndicator adds an indicator to the registry. Names are unique.
func (r *IndicatorRegistryV1) RegisterIndicator(def Definition) error {
	if def.Name == "" {
		return errors.New(errors.ErrCodeMissingParameter, "indicator name is required")
	}

	if def.Fn == nil {
		return errors.Newf(errors.ErrCodeMissingParameter, "indicator %s has no window function", def.Name)
	}

	if def.Period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "indicator %s: period must be a positive integer, got %d", def.Name, def.Period)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.indicators[def.Name]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator with name %s already registered", def.Name)
	}

	r.indicators[def.Name] = def
	r.order = append(r.order, def.Name)

	return nil
}

// GetIndicator retrieves an indicator by name.
func (r *IndicatorRegistryV1) GetIndicator(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.indicators[name]
	if !exists {
		return Definition{}, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator with name %s not found", name) //nolint:exhaustruct
	}

	return def, nil
}

// ListIndicators returns all definitions in registration order.
func (r *IndicatorRegistryV1) ListIndicators() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.indicators[name])
	}

	return defs
}

// RemoveIndicator removes an indicator from the registry.
func (r *IndicatorRegistryV1) RemoveIndicator(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.indicators[name]; !exists {
		return errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator with name %s not found", name)
	}

	delete(r.indicators, name)

	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)

			break
		}
	}

	return nil
}
