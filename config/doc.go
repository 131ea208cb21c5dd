// Package config provides the vidlens configuration model and loader.
//
// Configuration is resolved in three layers, later layers overriding
// earlier ones: built-in defaults, an optional YAML file, and VIDLENS_*
// environment variables. The Gemini API key has no default; a missing key
// fails validation and halts startup before any request can be served.
package config
