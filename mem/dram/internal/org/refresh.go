package org

// RefreshesPerWindow is the number of refreshes owed per 8*T_REFI window.
const RefreshesPerWindow = 8

// RefreshDeadline tracks the refresh budget of a rank.
type RefreshDeadline struct {
	NextCompletion int64
	LastCompletion int64
	IssueDeadline  int64
	Forced         bool
	Issued         int
}

// NewRefreshDeadline creates the budget of the first window.
func NewRefreshDeadline(t Timing) RefreshDeadline {
	d := RefreshDeadline{}
	d.NextCompletion = RefreshesPerWindow * t.TREFI
	d.IssueDeadline = d.latestIssue(t)

	return d
}

func (d *RefreshDeadline) latestIssue(t Timing) int64 {
	owed := int64(RefreshesPerWindow - d.Issued)
	if owed < 0 {
		owed = 0
	}

	return d.NextCompletion - t.TRP - owed*t.TRFC
}

// Advance updates the budget at the given cycle. The controller may skip
// cycles, so deadlines trigger on the first call at or after them. It
// returns true when the rank has to enter forced-refresh mode now.
func (d *RefreshDeadline) Advance(now int64, t Timing) (enterForced bool) {
	switch {
	case now >= d.NextCompletion:
		d.Issued = 0
		d.LastCompletion = now
		d.NextCompletion = now + RefreshesPerWindow*t.TREFI
		d.IssueDeadline = d.latestIssue(t)
		d.Forced = false
	case now >= d.IssueDeadline:
		if !d.Forced && d.Issued < RefreshesPerWindow {
			d.Forced = true
			return true
		}
	default:
		d.IssueDeadline = d.latestIssue(t)
	}

	return false
}

// Allows tells whether a command occupying the rank until now+latency still
// leaves room for the owed refreshes.
func (d *RefreshDeadline) Allows(now, latency int64) bool {
	return !d.Forced && now+latency <= d.IssueDeadline
}
