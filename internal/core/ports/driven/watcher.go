package driven

import "context"

// FileWatcher reports changes under a directory tree.
type FileWatcher interface {
	// Watch blocks until ctx is done, calling onChange after each burst of
	// changes to files matching the watcher's extensions.
	Watch(ctx context.Context, root string, onChange func(paths []string)) error
}
