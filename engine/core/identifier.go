package core

import "github.com/google/uuid"

// InstanceID tags engine-owned objects (managers, GPU handles) with a
// stable identity, mostly for logging and cross-referencing.
type InstanceID string

func NewInstanceID() InstanceID {
	return InstanceID(uuid.NewString())
}
