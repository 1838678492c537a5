// Package config loads, normalizes, and validates DriveTime configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment fallbacks such as DRIVETIME_API_KEY. The Config type centralizes
// every knob the worker and CLI need: the lookup URL template and key, worker
// timings, the queue database location, and logging.
//
// Always obtain settings through this package so downstream code receives
// resolved values (the worker never sees an unexpanded key template) and
// clear validation errors.
package config
