// Package catalog is the static registry of model descriptors available
// to the gateway. It is built once at startup and read-only thereafter.
package catalog

import "fmt"

// Tier is a coarse capability/cost class used to pick a default model
// for a task.
type Tier string

const (
	TierBasic    Tier = "basic"
	TierStandard Tier = "standard"
	TierAdvanced Tier = "advanced"
	TierExpert   Tier = "expert"
)

// Descriptor describes one model the gateway can route to. ModelID is
// the vendor-facing identifier and passes through to the wire unchanged.
type Descriptor struct {
	Provider        string
	ModelID         string
	DisplayName     string
	Tier            Tier
	MaxTokens       int
	SupportsVision  bool
	SupportsTools   bool
	CostPer1KInput  float64
	CostPer1KOutput float64
}

// Free reports whether both price fields are zero.
func (d Descriptor) Free() bool {
	return d.CostPer1KInput == 0 && d.CostPer1KOutput == 0
}

// Cost returns the USD cost of a request given token counts.
func (d Descriptor) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1000*d.CostPer1KInput +
		float64(outputTokens)/1000*d.CostPer1KOutput
}

type Catalog struct {
	models map[string]Descriptor
	keys   []string
}

// New builds a catalog from a key -> descriptor map. Every descriptor
// must carry a provider id and a vendor model id.
func New(models map[string]Descriptor) (*Catalog, error) {
	c := &Catalog{
		models: make(map[string]Descriptor, len(models)),
		keys:   make([]string, 0, len(models)),
	}
	for key, d := range models {
		if d.Provider == "" {
			return nil, fmt.Errorf("model %s: missing provider id", key)
		}
		if d.ModelID == "" {
			return nil, fmt.Errorf("model %s: missing vendor model id", key)
		}
		if d.MaxTokens <= 0 {
			return nil, fmt.Errorf("model %s: max tokens must be positive", key)
		}
		c.models[key] = d
		c.keys = append(c.keys, key)
	}
	return c, nil
}

// Lookup returns the descriptor registered under key.
func (c *Catalog) Lookup(key string) (Descriptor, bool) {
	d, ok := c.models[key]
	return d, ok
}

// Keys returns all registered model keys in unspecified order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.keys))
	copy(keys, c.keys)
	return keys
}

func (c *Catalog) Len() int {
	return len(c.models)
}
