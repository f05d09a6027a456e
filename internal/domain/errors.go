package domain

import "errors"

var (
	ErrRunNotFound    = errors.New("run not found")
	ErrInvalidRange   = errors.New("range end is before range start")
	ErrHubFull        = errors.New("realtime hub is at capacity")
	ErrHubStopped     = errors.New("realtime hub is stopped")
	ErrFeedClosed     = errors.New("change feed closed")
	ErrAlertsDisabled = errors.New("alerts are disabled")
	ErrAlertRejected  = errors.New("alert rejected by provider")
)
