package adapter

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	ErrUnknownAdapter = errors.New("unknown adapter")
	ErrAdapterExists  = errors.New("adapter already deployed")
)

type catalogEntry struct {
	name  string
	build Constructor
}

// Catalog maps deployed adapter addresses to their constructors.
type Catalog struct {
	mu      sync.RWMutex
	entries map[common.Address]catalogEntry
}

func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[common.Address]catalogEntry)}
}

// Generations lists the built-in adapters by name.
var Generations = map[string]Constructor{
	"v1": NewV1,
	"v2": NewV2,
	"v3": NewV3,
}

func (c *Catalog) Register(addr common.Address, name string, build Constructor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[addr]; ok {
		return errors.Wrapf(ErrAdapterExists, "%s", addr.Hex())
	}
	c.entries[addr] = catalogEntry{name: name, build: build}
	return nil
}

// Checkpoint captures the deployed adapters. The returned func restores them.
func (c *Catalog) Checkpoint() func() {
	c.mu.RLock()
	saved := make(map[common.Address]catalogEntry, len(c.entries))
	for addr, e := range c.entries {
		saved[addr] = e
	}
	c.mu.RUnlock()
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.entries = saved
	}
}

// Bind wraps contract with the adapter deployed at addr.
func (c *Catalog) Bind(addr common.Address, contract any) (Adapter, error) {
	c.mu.RLock()
	entry, ok := c.entries[addr]
	c.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAdapter, "%s", addr.Hex())
	}
	return entry.build(contract)
}

func (c *Catalog) Name(addr common.Address) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[addr]
	return entry.name, ok
}

// Addresses returns the deployed adapters in byte order.
func (c *Catalog) Addresses() []common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]common.Address, 0, len(c.entries))
	for addr := range c.entries {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}
