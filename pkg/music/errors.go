// This file defines the error categories used across the application. The
// search gateway classifies upstream failures so callers can react
// differently: a missing credential is fatal configuration, a quota
// rejection is recoverable by waiting, and anything else is a generic
// transport failure carrying the upstream message.
package music

import "errors"

// ErrNoCredentials indicates the external API credential was not configured.
// It is a configuration error and is never retried.
var ErrNoCredentials = errors.New("music: api key not configured")

// QuotaError reports that the external API rejected a request because the
// daily quota is exhausted. Callers detect it with IsQuota and typically
// stop issuing further requests for the session, preferring cached data.
type QuotaError struct {
	Message string
}

func (e *QuotaError) Error() string {
	if e.Message == "" {
		return "music: api quota exceeded"
	}
	return "music: api quota exceeded: " + e.Message
}

// IsQuota reports whether err is (or wraps) a quota rejection.
func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}
