package models

import (
	"fmt"
	"time"

	"mic/pkg/requestcontext"
)

// Window is the fixed counting window for write requests.
const Window = time.Minute

// KeyTTL outlives the window so a counter is never dropped mid-window.
const KeyTTL = 2 * time.Minute

// Result represents the outcome of a rate limit check. A zero Limit means the
// request was not counted.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds, only set when not allowed
}

// WindowStart truncates now to the start of its counting window.
func WindowStart(now time.Time) time.Time {
	return now.UTC().Truncate(Window)
}

// PostKey is the counter key for actor's writes in the window starting at
// windowStart.
func PostKey(actor requestcontext.Actor, windowStart time.Time) string {
	return fmt.Sprintf("rl:post:%s:%s:%d", actor.Type, actor.ID, windowStart.Unix()/int64(Window/time.Second))
}

// Decide turns a counter value into a Result.
func Decide(count int64, limit int, windowStart, now time.Time) *Result {
	reset := windowStart.Add(Window)
	res := &Result{
		Allowed: count <= int64(limit),
		Limit:   limit,
		ResetAt: reset,
	}
	if remaining := int64(limit) - count; remaining > 0 {
		res.Remaining = int(remaining)
	}
	if !res.Allowed {
		retry := int(reset.Sub(now).Round(time.Second) / time.Second)
		if retry < 1 {
			retry = 1
		}
		res.RetryAfter = retry
	}
	return res
}
