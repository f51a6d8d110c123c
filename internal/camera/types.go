// Package camera holds the virtual device model and the in-memory registry
// shared by the SOAP, discovery, and event components.
package camera

import (
	"github.com/gofrs/uuid"
	"github.com/juju/errors"
)

// Device describes one virtual ONVIF camera. Records are created and
// maintained by the external configuration layer; protocol handlers only
// read them.
type Device struct {
	// ID uniquely identifies the record and never changes after creation.
	ID string `yaml:"id" json:"id"`

	// UUID is the protocol-visible endpoint address used in WS-Discovery
	// and event metadata. Must be a valid UUID string.
	UUID string `yaml:"uuid" json:"uuid"`

	Name            string `yaml:"name" json:"name"`
	Manufacturer    string `yaml:"manufacturer" json:"manufacturer"`
	Model           string `yaml:"model" json:"model"`
	FirmwareVersion string `yaml:"firmware_version" json:"firmware_version"`

	// Stream endpoints are opaque pass-through strings; the engine never
	// inspects or proxies them.
	MainStreamURL string `yaml:"main_stream_url" json:"main_stream_url"`
	SubStreamURL  string `yaml:"sub_stream_url" json:"sub_stream_url"`

	Enabled bool `yaml:"enabled" json:"enabled"`

	// CustomEvents lists additional event type names beyond the built-in
	// motion/door/tamper set.
	CustomEvents []string `yaml:"custom_events" json:"custom_events"`
}

// Validate checks the protocol-critical fields. Full record validation is
// the configuration layer's job; the engine only rejects records it could
// not represent on the wire.
func (d Device) Validate() error {
	if d.ID == "" {
		return errors.NotValidf("device id")
	}
	if _, err := uuid.FromString(d.UUID); err != nil {
		return errors.NotValidf("device uuid %q", d.UUID)
	}
	return nil
}

// HardwareID derives the hardware identifier advertised in
// GetDeviceInformation from the device uuid.
func (d Device) HardwareID() string {
	short := d.UUID
	if len(short) > 8 {
		short = short[:8]
	}
	if short == "" {
		return ""
	}
	return "VirtualONVIF-" + short
}
