// Package config loads lima session settings from YAML files, .env files and
// LIMA_ prefixed environment variables.
//
// # Usage
//
//	var s config.Settings
//	if err := config.Load("petstore", &s); err != nil {
//	    return err
//	}
//	s.ApplyDefaults()
//
// Environment variables override file values: LIMA_DEFAULT_TIMEOUT=30s sets
// default_timeout, LIMA_LOGGING_LEVEL=debug sets logging.level.
package config
