// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM (Go Object Relational Mapping) to properly configure
// MySQL connections based on the application's configuration.
//
// # Connect
//
// The Connect function establishes a connection to the document store database
// with sane pool settings and connection, read and write timeouts baked into
// the DSN.
//
// # Schema Inspection
//
// The package includes tools to inspect the database schema, used by the
// verify feature to check that the documents table carries the expected
// columns.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
package database
