// Package registry maps marker names to their static descriptors.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/wanderlens/arsync/pkg/core"
)

// ErrDuplicateMarker is returned when two descriptors share a name.
var ErrDuplicateMarker = errors.New("duplicate marker name")

// Registry is an immutable name -> descriptor index built once at load time.
type Registry struct {
	byName map[string]core.MarkerDescriptor
	byFold map[string]string
}

// New indexes descriptors. Empty or duplicate names are rejected.
func New(descs []core.MarkerDescriptor) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]core.MarkerDescriptor, len(descs)),
		byFold: make(map[string]string, len(descs)),
	}
	for i, d := range descs {
		if d.Name == "" {
			return nil, fmt.Errorf("descriptor %d: empty marker name", i)
		}
		if _, ok := r.byName[d.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMarker, d.Name)
		}
		r.byName[d.Name] = d
		// first spelling wins for case-insensitive selection
		if _, ok := r.byFold[strings.ToLower(d.Name)]; !ok {
			r.byFold[strings.ToLower(d.Name)] = d.Name
		}
	}
	return r, nil
}

// Lookup returns the descriptor for name. Unknown names return false.
func (r *Registry) Lookup(name string) (core.MarkerDescriptor, bool) {
	if r == nil {
		return core.MarkerDescriptor{}, false
	}
	d, ok := r.byName[name]
	return d, ok
}

// Select resolves a scene/location selection case-insensitively.
func (r *Registry) Select(location string) (core.MarkerDescriptor, bool) {
	if r == nil {
		return core.MarkerDescriptor{}, false
	}
	if d, ok := r.byName[location]; ok {
		return d, true
	}
	name, ok := r.byFold[strings.ToLower(strings.TrimSpace(location))]
	if !ok {
		return core.MarkerDescriptor{}, false
	}
	return r.byName[name], true
}

// Names returns all marker names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of descriptors.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byName)
}
