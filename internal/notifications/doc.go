// Package notifications delivers worker events via ntfy.
//
// The default implementation publishes to the topic URL configured under
// [notifications] and degrades to a no-op when no topic is set. Only two
// events leave the process: the worker suspending until the next day after an
// upstream failure, and a fatal exit. Each can be silenced individually.
package notifications
