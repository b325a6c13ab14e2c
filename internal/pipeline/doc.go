// Package pipeline runs the stages of one run in sequence: research (when the
// text comes from the model), redirect resolution, artifact files and run
// history.
//
// Each stage is a Step working on a shared RunState. BatchProcessor runs one
// fresh pipeline per input with bounded concurrency so several agent output
// files can be post-processed in one command.
package pipeline
