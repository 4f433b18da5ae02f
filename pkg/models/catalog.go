// Package models holds the catalog of forecasting models and derives their
// state from the artifacts found in the output directory.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrModelNotFound is returned when a key does not resolve in the catalog.
var ErrModelNotFound = errors.New("model not found")

// Descriptor describes one external forecasting model.
type Descriptor struct {
	Key         string `json:"key"`
	DisplayName string `json:"name"`
	Description string `json:"description"`
	Script      string `json:"script"`
	OutputFile  string `json:"output"`
	UseCase     string `json:"use_case"`
}

// Catalog is an immutable, ordered set of model descriptors. Order matters:
// prediction artifacts are tagged with the first model whose key they contain.
type Catalog struct {
	models   []Descriptor
	index    map[string]int
	fallback int
}

// NewCatalog validates descriptors and builds a catalog. fallback names the
// model that untagged predictions are attributed to; empty means the last one.
func NewCatalog(descriptors []Descriptor, fallback string) (*Catalog, error) {
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("catalog has no models")
	}

	c := &Catalog{
		models: make([]Descriptor, len(descriptors)),
		index:  make(map[string]int, len(descriptors)),
	}
	copy(c.models, descriptors)

	for i, d := range c.models {
		key := strings.ToLower(strings.TrimSpace(d.Key))
		if key == "" {
			return nil, fmt.Errorf("model %d has no key", i)
		}
		if d.Script == "" {
			return nil, fmt.Errorf("model %q has no script", d.Key)
		}
		if d.OutputFile == "" {
			return nil, fmt.Errorf("model %q has no output file", d.Key)
		}
		if _, dup := c.index[key]; dup {
			return nil, fmt.Errorf("duplicate model key %q", d.Key)
		}
		c.models[i].Key = key
		if c.models[i].DisplayName == "" {
			c.models[i].DisplayName = strings.ToUpper(key)
		}
		c.index[key] = i
	}

	c.fallback = len(c.models) - 1
	if fallback != "" {
		i, ok := c.index[strings.ToLower(fallback)]
		if !ok {
			return nil, fmt.Errorf("fallback model %q is not in the catalog", fallback)
		}
		c.fallback = i
	}
	return c, nil
}

// Lookup resolves a key case-insensitively.
func (c *Catalog) Lookup(key string) (Descriptor, bool) {
	i, ok := c.index[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return Descriptor{}, false
	}
	return c.models[i], true
}

// Resolve is Lookup returning ErrModelNotFound for unknown keys.
func (c *Catalog) Resolve(key string) (Descriptor, error) {
	d, ok := c.Lookup(key)
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s (valid: %s)", ErrModelNotFound, key, strings.Join(c.Keys(), ", "))
	}
	return d, nil
}

// Models returns a copy of the descriptors in catalog order.
func (c *Catalog) Models() []Descriptor {
	out := make([]Descriptor, len(c.models))
	copy(out, c.models)
	return out
}

// Keys returns the model keys in catalog order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.models))
	for i, d := range c.models {
		keys[i] = d.Key
	}
	return keys
}

// Fallback returns the model untagged predictions belong to.
func (c *Catalog) Fallback() Descriptor {
	return c.models[c.fallback]
}

// Classify returns the model an artifact file name belongs to: the first
// non-fallback model whose key occurs in the name, else the fallback.
func (c *Catalog) Classify(fileName string) Descriptor {
	name := strings.ToLower(fileName)
	for i, d := range c.models {
		if i == c.fallback {
			continue
		}
		if strings.Contains(name, d.Key) {
			return d
		}
	}
	return c.Fallback()
}

// DefaultCatalog returns the built-in model set.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]Descriptor{
		{
			Key:         "arima",
			DisplayName: "ARIMA",
			Description: "AutoRegressive Integrated Moving Average",
			Script:      "backend/models/arima_model.py",
			OutputFile:  "arima_act_pred.png",
			UseCase:     "Time series forecasting for CPU trends",
		},
		{
			Key:         "lstm",
			DisplayName: "LSTM",
			Description: "Long Short-Term Memory Neural Network",
			Script:      "backend/models/lstm_model.py",
			OutputFile:  "lstm_act_pred.png",
			UseCase:     "Deep learning for sequential pattern recognition",
		},
		{
			Key:         "deepar",
			DisplayName: "DeepAR",
			Description: "Probabilistic Forecasting with RNN",
			Script:      "backend/models/deepar_model.py",
			OutputFile:  "deepar_pred.png",
			UseCase:     "Uncertainty quantification in predictions",
		},
	}, "deepar")
	if err != nil {
		panic(err)
	}
	return c
}

type catalogFile struct {
	Fallback string       `json:"fallback"`
	Models   []Descriptor `json:"models"`
}

// LoadCatalog reads a catalog from a JSON file of the form
// {"fallback": "deepar", "models": [{"key": ..., "script": ..., "output": ...}]}.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return NewCatalog(f.Models, f.Fallback)
}
