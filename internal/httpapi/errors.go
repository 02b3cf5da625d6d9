package httpapi

import "errors"

var (
	errNoStoreWatcher  = errors.New("server not configured with a rule-store watcher")
	errNoOverrideStore = errors.New("server not configured with an exception override store")
)
