package service

import "time"

const (
	MaxConcurrentDraws = 10               // draws processed in parallel by the scheduler sweep
	ProcessingTimeout  = 2 * time.Minute  // max duration of one draw commit
	LockTimeout        = 30 * time.Second // cross-process lock TTL
	NotifyRetries      = 3                // delivery attempts per recipient
	NotifyRetryDelay   = 5 * time.Second
)
