// Package lifecycle binds persistence mutation hooks to broadcast emission.
//
// The Binder exposes one method per hook the persistence layer fires. Single
// record hooks emit directly with the mutation result. Bulk hooks need two
// phases: the "before" hook snapshots what the mutation is about to touch
// (ids for updates, full records for deletes, since deleted rows cannot be
// refetched) and returns a Snapshot the caller threads into the matching
// "after" hook. Snapshots are scoped to one mutation; nothing is shared
// between concurrent mutations. An "after" hook called without its snapshot
// skips emission rather than emitting incomplete data.
package lifecycle
