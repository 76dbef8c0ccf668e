/*
Package session implements per-session concurrency control.

It provides a lock manager that serializes mutation of individual decision
sessions, combining refcounted in-process mutexes with optional distributed
locking so the engine stays safe across multiple replicas sharing one store.
*/
package session
