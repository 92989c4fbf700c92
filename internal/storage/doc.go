package storage

// Package storage owns the SQLite database handle, schema migrations and the
// consistent-snapshot primitive used by backups. Entity stores live with
// their domains and share the handle via SQL().
