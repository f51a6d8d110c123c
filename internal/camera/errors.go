package camera

import "errors"

// ErrDeviceNotFound is returned when a lookup or selection names a device
// id that is not in the registry.
var ErrDeviceNotFound = errors.New("device not found")
