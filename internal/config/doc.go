// Package config loads, normalizes, and validates wwfm configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// COSMIC_READ_KEY and STRIPE_WEBHOOK_SECRET so secrets can stay out of the
// file in deployments. The Config type centralizes every knob the site server
// and the migration jobs need.
//
// Always obtain settings through this package so downstream code receives
// trimmed URLs, a loadable station timezone, and clear validation errors.
package config
