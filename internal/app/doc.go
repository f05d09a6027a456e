// Package app provides the application service layer.
//
// Records runs and sprints, answers count queries, keeps today's count cached
// and reacts to inserted runs (realtime fan-out and the inactivity alert).
// Depends on domain interfaces, not concrete adapters.
package app
