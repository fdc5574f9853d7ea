// Package dev provides development helpers for the cells CLI.
//
// Watcher reports changes to a set of files, debouncing the bursts of events
// editors produce when saving. `cells serve --watch` uses it to reload the
// served sheet when its file changes:
//
//	w := dev.NewWatcher(dev.WatcherConfig{Paths: []string{"order.yaml"}})
//	w.OnChange(func(c dev.Change) {
//	    log.Println("changed:", c.Path)
//	})
//	go w.Start(ctx)
//	defer w.Stop()
package dev
