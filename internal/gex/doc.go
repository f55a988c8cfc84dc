// Package gex implements the gamma exposure pipeline: strike selection over
// an options chain, reconciliation of snapshot and streamed market data,
// per-contract and per-strike exposure aggregation, level finding (walls and
// the zero-gamma flip) and a rule-based regime signal.
//
// The package consumes a Provider for all market access and performs no
// persistence; one Engine.ComputeProfile call is one bounded, stateless run.
package gex
