/*
Package observability provides lifecycle hooks for monitoring learning sessions.

It includes Prometheus metrics fed by the orchestrator lifecycle hooks, a
structured-logging hook set, and Combine to fan one event out to several hook
sets.
*/
package observability
