// Package triage is the classification and reporting pipeline. The Enricher
// annotates raw channel messages with derived fields and taxonomy matches,
// Filter selects the ones a job reports on, and the Dispatcher drives one
// job tick across every installed workspace and channel. Stats serves the
// same Fetch and Enrich steps on demand for exports.
package triage
