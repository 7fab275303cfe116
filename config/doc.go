// Package config provides configuration loading and validation for azstore
// tooling.
//
// The package handles YAML configuration files, environment variables, and CLI
// flags with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (AZSTORE_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with AZSTORE_ prefix:
//   - client.cloud_suffix → AZSTORE_CLIENT_CLOUD_SUFFIX
//   - emulator.blob_port → AZSTORE_EMULATOR_BLOB_PORT
//   - log.level → AZSTORE_LOG_LEVEL
//
// # Profiles
//
// Alongside the flat tool configuration, the package manages a multi-profile
// YAML file (~/.azstore/config.yaml by default) holding per-account connection
// settings for the CLI. Profiles are resolved by name, fall back to the
// default profile, and can be overridden by the AZSTORE_ACCOUNT, AZSTORE_KEY
// and AZSTORE_ENDPOINT environment variables.
package config
