// Package config provides configuration management for the sync service.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key)
//   - Database: MySQL connection details for the document store
//   - Storage: S3/MinIO credentials and bucket settings for the table source
//   - Log: Logging level and format
//   - Sync: default run options (strategy, table, collection, batching)
//   - Source: table source reader settings (prefix, datetime fields, cache)
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
//
// # Defaults
//
// Default values are declared as 'default' struct tags on the partial config
// structs and registered in Viper through reflection, so every key is also
// overridable through the environment (e.g. SERVER_PORT, SYNC_STRATEGY).
package config
