package camera

import (
	"sort"
	"sync"

	"github.com/juju/errors"
	"github.com/rs/zerolog"
)

// Registry is the concurrent in-memory device store. It is read from the
// SOAP handler goroutines and the discovery receive loop, and mutated by
// the external configuration layer; all methods are safe for concurrent
// use.
//
// Exactly one device is protocol-active at a time: discovery replies and
// device-information responses describe only the active device. The first
// device added becomes active; removing the active device re-selects
// arbitrarily from the remainder.
type Registry struct {
	mu       sync.RWMutex
	devices  map[string]Device
	activeID string
	log      zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		devices: make(map[string]Device),
		log:     log.With().Str("component", "registry").Logger(),
	}
}

// Get returns the device with the given id.
func (r *Registry) Get(id string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	return d, ok
}

// List returns all devices, ordered by id for stable iteration.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Upsert adds a new device or replaces an existing record with the same id.
// The first device added while no device is active becomes the active
// device.
func (r *Registry) Upsert(d Device) error {
	if err := d.Validate(); err != nil {
		return errors.Trace(err)
	}

	r.mu.Lock()
	_, existed := r.devices[d.ID]
	r.devices[d.ID] = d
	if r.activeID == "" {
		r.activeID = d.ID
	}
	r.mu.Unlock()

	if existed {
		r.log.Info().Str("id", d.ID).Str("name", d.Name).Msg("device updated")
	} else {
		r.log.Info().Str("id", d.ID).Str("name", d.Name).Msg("device added")
	}
	return nil
}

// Remove deletes the device with the given id and reports whether it was
// present. Removing the active device promotes any remaining device to
// active, or clears the selection when the registry is empty.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	_, ok := r.devices[id]
	if ok {
		delete(r.devices, id)
		if r.activeID == id {
			r.activeID = ""
			for remaining := range r.devices {
				r.activeID = remaining
				break
			}
		}
	}
	active := r.activeID
	r.mu.Unlock()

	if ok {
		r.log.Info().Str("id", id).Str("active", active).Msg("device removed")
	}
	return ok
}

// Active returns the currently active device.
func (r *Registry) Active() (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[r.activeID]
	return d, ok
}

// SetActive selects which device answers discovery and device-information
// requests. Returns ErrDeviceNotFound for an unknown id.
func (r *Registry) SetActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[id]; !ok {
		return errors.Annotatef(ErrDeviceNotFound, "cannot activate %q", id)
	}
	r.activeID = id
	return nil
}
