// Package watcher merges subtitle pairs as they land in a directory.
//
// Files named "<name>.<lang>.srt" are grouped by name; once both the primary
// and secondary language exist and have stopped changing for the settle
// delay, the pair is handed to a handler. A lock file in the watched
// directory keeps two watchers from merging the same pairs.
package watcher
