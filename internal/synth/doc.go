// Package synth defines the synthetic-data record persisted by the log store
// and its conversion to and from opaque store items.
package synth
