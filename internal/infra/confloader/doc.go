// Package confloader loads configuration from multiple sources.
//
// It uses koanf with the priority env > file > default, plus an fsnotify
// watcher so the server can react to config file edits at runtime.
package confloader
