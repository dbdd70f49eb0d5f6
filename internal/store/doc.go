// Package store persists follow relationships in SQLite.
//
// A Follow links one chat user to one show from the metadata catalog. The
// Store is the exclusive owner of the follows table: the bot command surface
// creates and deletes rows, the dispatcher reads followers per show, nothing
// else writes. (user_id, show_id) is unique; following a show twice returns
// the existing row instead of erroring.
//
// Schema changes bump the version in schema.go; the database refuses to open
// against a mismatched schema rather than migrating silently.
package store
