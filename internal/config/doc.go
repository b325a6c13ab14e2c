// Package config provides configuration structures and utilities for ballotresearch.
// It defines the options for redirect resolution, research runs against the
// Gemini API, report output, and run history storage.
package config
