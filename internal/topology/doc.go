// ABOUTME: Package topology keeps the monitor capture attached to the default output
// ABOUTME: Reacts to sink events delivered by the audio backend
// Package topology maintains a single capture attachment to the default
// sink's monitor source. It attaches at startup and re-attaches when a sink
// with hardware volume appears or changes while no healthy capture exists.
package topology
