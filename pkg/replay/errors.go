package replay

import "errors"

var (
	ErrUnknownEnvironment = errors.New("unknown environment")
	ErrTargets            = errors.New("failed to load streaming targets")
)
