// Package l1 defines how boards are exposed beyond the serial link.
package l1

import (
	"context"
	"strings"
)

// DeviceRef is a reference to a bridged board.
type DeviceRef struct {
	// Type is the board type, e.g. servo2040.
	Type string
	// ID is unique ID of the device.
	ID string
}

// Name retrieves the name from ref, it's also the topic prefix of the device.
func (r DeviceRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid indicates DeviceRef is valid.
func (r DeviceRef) IsValid() bool {
	return r.Type != "" && r.ID != "" && !strings.ContainsAny(r.Type+r.ID, "/+#")
}

// ParseDeviceRef parses the form produced by Name.
func ParseDeviceRef(name string) (ref DeviceRef, ok bool) {
	items := strings.Split(name, "/")
	if len(items) != 2 {
		return
	}
	ref = DeviceRef{Type: items[0], ID: items[1]}
	return ref, ref.IsValid()
}

// DeviceMeta provides metadata of a bridged board.
type DeviceMeta struct {
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	// Layout is the name of the register layout, see regmap.Profiles.
	Layout string `json:"layout,omitempty"`
}

// DeviceInfo provides information of a bridged board.
type DeviceInfo struct {
	Ref  DeviceRef
	Meta DeviceMeta
}

// Registers is the register level access to a board, local or remote.
type Registers interface {
	Set(ctx context.Context, start byte, values ...uint16) error
	Get(ctx context.Context, start byte, count int) ([]uint16, error)
	SetThenVerify(ctx context.Context, start byte, values []uint16, tolerance uint16) error
}
