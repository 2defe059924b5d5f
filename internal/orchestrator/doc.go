// Package orchestrator implements the per-concept learning-session state machine:
// the session controller, the question flow, the decision resolver and the
// pacing aggregator.
package orchestrator
