package perfmgr

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// NodeKind selects which NodeWriter realization a catalog entry binds to
// (spec.md §6.1).
type NodeKind string

const (
	NodeKindFile     NodeKind = "file"
	NodeKindProperty NodeKind = "property"
	NodeKindTest     NodeKind = "test"
)

// CatalogEntry is one row of the external Node catalog input (spec.md
// §6.1), loaded via go-toml/v2 matching internal/nebula/state.go's
// marshal/unmarshal idiom.
type CatalogEntry struct {
	Name        string   `toml:"name"`
	Kind        NodeKind `toml:"kind"`
	Endpoint    string   `toml:"endpoint"`
	Values      []string `toml:"values"`
	ResetOnInit bool     `toml:"reset_on_init"`
	Capacity    int      `toml:"capacity"`
	Readable    bool     `toml:"readable"`
}

// Catalog is the full set of Node/NodeAction definitions loaded at
// process start (spec.md §6.1; reload is a Non-goal, so Catalog is
// immutable after Load).
type Catalog struct {
	Nodes []CatalogEntry `toml:"nodes"`
}

// LoadCatalog reads and validates a TOML catalog file. Validation enforces
// spec.md §3 NodeAction invariants that are checkable at this stage: names
// unique, kind recognized, values non-empty.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("perfmgr: read catalog %s: %w", path, err)
	}
	var cat Catalog
	if err := toml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("perfmgr: parse catalog %s: %w", path, err)
	}
	if err := cat.validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool, len(c.Nodes))
	for i := range c.Nodes {
		e := &c.Nodes[i]
		if e.Name == "" {
			return newError(KindInvalidArgument, "", "name", fmt.Errorf("catalog entry %d: empty name", i))
		}
		if seen[e.Name] {
			return newError(KindInvalidArgument, e.Name, "name", fmt.Errorf("catalog entry %d: duplicate node name", i))
		}
		seen[e.Name] = true
		switch e.Kind {
		case NodeKindFile, NodeKindProperty, NodeKindTest:
		default:
			return newError(KindInvalidArgument, e.Name, "kind", fmt.Errorf("unknown kind %q", e.Kind))
		}
		if len(e.Values) == 0 {
			return newError(KindInvalidArgument, e.Name, "values", fmt.Errorf("values must be non-empty"))
		}
		if e.Capacity <= 0 {
			e.Capacity = 8
		}
	}
	return nil
}

// BuildNodes instantiates concrete Node values from the catalog, wiring
// each to its NodeWriter realization. store is shared across all
// NodeKindProperty entries (spec.md §4.2's "process-global typed
// configuration store").
func (c *Catalog) BuildNodes(store PropertyStore, clock Clock, events EventFunc) ([]*Node, error) {
	if store == nil {
		store = NewMemPropertyStore()
	}
	nodes := make([]*Node, 0, len(c.Nodes))
	for _, e := range c.Nodes {
		var w NodeWriter
		switch e.Kind {
		case NodeKindFile:
			fn, err := NewFileNode(e.Endpoint, e.Readable)
			if err != nil {
				return nil, err
			}
			w = fn
		case NodeKindProperty:
			w = NewPropertyNode(e.Endpoint, store)
		case NodeKindTest:
			w = NewTestNode()
		}
		n := NewNode(e.Name, e.Values, e.Capacity, w, clock, events)
		if e.ResetOnInit && w != nil {
			if err := w.Write(e.Values[0]); err != nil {
				return nil, newError(KindIllegalState, e.Name, "reset_on_init", err)
			}
			n.applied = 0
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
