package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// MachineID retrieves an ID identifying the machine. The raw machine ID
// is hashed with the application name as it's published in topics.
// Falls back to the host name.
func MachineID() string {
	id, err := machineid.ProtectedID("servo2040")
	if err == nil {
		return id[:12]
	}
	glog.Warningf("machine id unavailable: %v", err)
	if id, err = os.Hostname(); err == nil && id != "" {
		return id
	}
	return "local"
}
