// Package database handles relational database connections.
//
// It wraps GORM to configure MySQL or SQLite connections from the application's
// configuration. The SQL state store backend (core/statestore) runs on top of it.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
package database
