// ABOUTME: Package monitor decides when system audio should pause the ambient track
// ABOUTME: Smoothed loudness estimate plus a pause/resume hysteresis state machine
// Package monitor turns captured loopback frames into play and pause calls.
//
// Frames arrive through Submit from the capture callback and are queued
// without blocking. A sampling loop drains them every tick, computes one
// RMS loudness value per frame, and keeps the mean over a bounded History.
// The Decider then pauses the player while that mean is above a threshold
// and resumes it once the system has been quiet for the resume delay.
//
// Frames are discarded while the ambient track's own output is active, so
// the monitor never reacts to its own sound.
package monitor
