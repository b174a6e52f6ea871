// Package env derives host-specific defaults shared by the
// controller and connector environments.
package env

import (
	"hash/fnv"

	"github.com/denisbrodbeck/machineid"
)

// MachineID retrieves the unique ID identifying the machine.
func MachineID() string {
	id, err := machineid.ID()
	if err != nil {
		panic(err)
	}
	return id
}

// ControllerID folds the machine ID into the one-byte controller id
// space, so controllers started without an explicit id stay stable
// across restarts on the same machine.
func ControllerID() byte {
	h := fnv.New32a()
	h.Write([]byte(MachineID()))
	return byte(h.Sum32())
}
