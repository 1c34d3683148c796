package perfmgr

import "sync"

// FlagProvider exposes named boolean predicates with override support
// (spec.md §4.5). It is a process-wide singleton but is never a bare
// global var: callers reach it through Resolve(), grounded on the
// teacher's config.Load() + viper global-but-resolved pattern.
type FlagProvider struct {
	mu        sync.RWMutex
	defaults  map[string]bool
	overrides map[string]bool
}

var (
	flagsOnce sync.Once
	flags     *FlagProvider
)

// Resolve returns the process-wide FlagProvider, constructing it lazily on
// first call (spec.md §4.5 "a single initialization is performed lazily").
func Resolve() *FlagProvider {
	flagsOnce.Do(func() {
		flags = newFlagProvider()
	})
	return flags
}

func newFlagProvider() *FlagProvider {
	return &FlagProvider{
		defaults:  make(map[string]bool),
		overrides: make(map[string]bool),
	}
}

// SetDefault installs the compiled-in default for flag; intended to be
// called once at catalog-load time before any override is read.
func (f *FlagProvider) SetDefault(flag string, value bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaults[flag] = value
}

// ValueOf returns the override for flag if one is installed, else its
// compiled default (false if the flag is unknown).
func (f *FlagProvider) ValueOf(flag string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if v, ok := f.overrides[flag]; ok {
		return v
	}
	return f.defaults[flag]
}

// Override installs a value that shadows the default for flag.
func (f *FlagProvider) Override(flag string, value bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides[flag] = value
}

// ClearOverride removes flag's override, reverting to its compiled
// default.
func (f *FlagProvider) ClearOverride(flag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.overrides, flag)
}

// ClearAllOverrides reverts every flag to its compiled default.
func (f *FlagProvider) ClearAllOverrides() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides = make(map[string]bool)
}

// GetterByName returns a zero-arg predicate bound to flag, for text-driven
// wiring in tests and config (spec.md §4.5 "for text-driven wiring in
// tests and for reading config"). ok is false only if flag has never had a
// default registered.
func (f *FlagProvider) GetterByName(flag string) (fn func() bool, ok bool) {
	f.mu.RLock()
	_, ok = f.defaults[flag]
	f.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return func() bool { return f.ValueOf(flag) }, true
}

// TearDown fully restores compiled defaults by clearing overrides. Intended
// for test fixtures that need a clean FlagProvider between cases without
// re-registering every default.
func (f *FlagProvider) TearDown() {
	f.ClearAllOverrides()
}

// resetForTest discards the singleton entirely so the next Resolve() call
// builds a fresh FlagProvider. Test-only; production code never needs to
// tear down the process-wide singleton's identity, only its overrides.
func resetForTest() {
	flagsOnce = sync.Once{}
	flags = nil
}
