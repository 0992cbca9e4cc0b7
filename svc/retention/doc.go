// Package retention resolves how many versions of each project file an
// account's subscription plan keeps. The purge engine consumes this as an
// external input; nothing here computes billing state.
package retention
