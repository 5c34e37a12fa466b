package confirm

import "context"

// LinkedChange is a change that applies one setting immediately and then
// offers a related follow-up, e.g. changing the location and asking whether
// the timezone should follow it.
type LinkedChange struct {
	// ApplyNow performs and announces the first change.  If it fails the
	// follow-up question is never posed.
	ApplyNow func(ctx context.Context) error

	// Followup is registered as a pending confirmation once ApplyNow
	// succeeds.  Its Question is posed in the same turn.
	Followup Pending
}

// RequestLinked applies lc.ApplyNow and, on success, poses the follow-up
// question as a fresh pending confirmation.
func (c *Controller) RequestLinked(ctx context.Context, userID string, lc LinkedChange) error {
	if err := lc.ApplyNow(ctx); err != nil {
		return err
	}
	c.Request(ctx, userID, lc.Followup)
	return nil
}
