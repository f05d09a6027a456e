// Package domain holds the wheel's records and the contracts between the
// store, the change feed, the realtime hub and the alert sender. It has no
// I/O of its own so adapters and the app layer can depend on it freely.
package domain
