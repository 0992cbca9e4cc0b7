// Package keypath validates storage keys before they reach the backing
// store.
//
// SafeJoin composes keys while guaranteeing the result stays inside the
// caller's namespace root, rejecting path traversal. The Is* matchers
// validate the exact shape of keys and prefixes handed to destructive
// operations; deletion code refuses anything that does not match.
//
// All functions operate on plain strings with "/" separators and never
// touch a filesystem.
package keypath
