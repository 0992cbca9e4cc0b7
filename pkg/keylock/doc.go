// Package keylock provides per-key serialization for the version store.
//
// Version-id allocation reads "max existing id" and writes "max + 1"; that
// read-modify-write must be exclusive per logical file key. Two
// implementations of Locker are provided:
//
//   - Mutex: an in-process keyed mutex, for deployments where one process
//     owns the storage namespace.
//   - RedisLock: a Redis SET NX lease, for multiple instances sharing one
//     bucket.
//
// Both block until the key is free or the context is done.
package keylock
