// Package history persists a record of every merge the CLI performs in a
// SQLite database: which inputs were merged (by path and content
// fingerprint), with which options, what the alignment report looked like and
// where the output went.
//
// The schema is embedded and versioned through a schema_version table. A
// version mismatch is reported as ErrSchemaMismatch rather than migrated;
// the history is a convenience log and can be deleted safely.
package history
