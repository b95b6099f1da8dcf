package scan

import (
	"errors"
	"time"
)

const (
	defaultTimeout      = 2000 * time.Millisecond
	defaultConcurrency  = 100
	defaultBannerBuffer = 1024
)

// trigger is written after connecting to nudge services that wait for the
// client before sending a banner.
const trigger = "\r\n"

var (
	ErrInvalidConcurrency = errors.New("concurrency must be at least 1")
	ErrInvalidTimeout     = errors.New("timeout must be positive")
)
