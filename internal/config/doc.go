// Package config provides configuration structures and utilities for PiStorm.
// It defines the options for the orchestrator API server, the wireless attack
// workflow, and the GPU crack listener, and loads overrides from the
// .pistorm YAML file.
package config
