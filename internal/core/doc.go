// Package core holds the error taxonomy shared by every collector component.
//
// A run either completes or aborts with one of the coded errors below; the
// caller decides whether to re-invoke. Nothing in the collector retries on
// its own.
package core
