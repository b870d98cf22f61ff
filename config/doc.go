// Package config loads and validates bot configuration from a YAML file and
// the environment. Environment variables override file values; the Discord
// token is only ever read from the environment.
package config
