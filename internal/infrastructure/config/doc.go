// Package config loads and validates preflight configuration.
//
// Configuration comes from a YAML file (PREFLIGHT_CONFIG, default
// configs/config.yaml) layered over built-in defaults, with PREFLIGHT_*
// environment variables applied last. Secrets such as the MQTT password,
// the InfluxDB token and the JWT secret belong in the environment.
//
// Usage:
//
//	cfg, err := config.Load(config.Path())
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
