package keypath

import "errors"

// ErrPathEscape is returned when a joined key would resolve outside its
// namespace root. Always fatal to the requested operation, never retried.
var ErrPathEscape = errors.New("joined path is located outside of the base path")
