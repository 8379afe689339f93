package core

import (
	"errors"
)

var (
	ErrLoaderAttached = errors.New("a loader for this asset type is already attached")
	ErrLoaderUnbound  = errors.New("loader has not been bound to a scheduling context")
)
