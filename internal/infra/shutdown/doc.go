// Package shutdown coordinates graceful process termination.
//
// A Handler collects cleanup hooks from the components that need teardown
// (listener, metrics endpoint, snapshot manager) and runs them in reverse
// registration order when SIGINT or SIGTERM arrives, bounded by a timeout.
package shutdown
