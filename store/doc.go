// Package store groups the queuectl.Store backends.
//
//	memstore    in-process, for tests and throwaway queues
//	filestore   a single JSON file (the default for the CLI)
//	sqlstore    MySQL, PostgreSQL or SQLite through database/sql
//	redisstore  one JSON value in Redis
//
// Every backend loads and saves the whole collection at once and preserves
// insertion order. Callers serialize read-modify-write cycles.
package store
