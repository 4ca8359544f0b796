// Package config provides 12-factor configuration for the file vault
// service.
//
// Configuration is loaded from environment variables with sensible
// defaults; an optional YAML file can overlay the environment for
// deployments that prefer checked-in settings.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, body limits)
//   - Store: base directory, size ceiling, cache and checksum tuning
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting configuration
//
// Environment Variables:
//   - PORT, HOST, MAX_BODY_BYTES
//   - VAULT_BASE_DIR, VAULT_MAX_FILE_SIZE, VAULT_CACHE_SIZE,
//     VAULT_CACHE_TTL, VAULT_PERSIST_EVERY, VAULT_VERSIONING,
//     VAULT_ARCHIVE_RETENTION_DAYS
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
