package alerts

import (
	"context"
	"fmt"

	"github.com/AngelCh415/yukti/internal/models"
	"github.com/AngelCh415/yukti/internal/store"
)

// Phase is a stage of one automatic resolution.
type Phase string

const (
	PhaseProcessing  Phase = "processing"
	PhaseDispatching Phase = "dispatching"
	PhaseResolved    Phase = "resolved"
	PhaseFailed      Phase = "failed"
	PhaseAllClear    Phase = "all_clear"
)

const (
	msgProcessing = "AI Auto-Resolve is active. Processing top-priority issue..."
	msgFailed     = "Failed to resolve issue in the backend."
	msgAllClear   = "All clear! No pending issues found in the queue."
)

// Step is one status line shown while the agent works.
type Step struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message"`
}

func dispatchMessage(i models.IssueRecord) string {
	if i.IssueType == models.IssueOOS {
		return fmt.Sprintf("Resolving OOS: %s in %s. Pausing ads and dispatching restock email…", i.SKU, i.City)
	}
	return fmt.Sprintf("Resolving Content Issue: %s in %s. Flagging issue and dispatching ticket email…", i.SKU, i.City)
}

// AutoResult is what one automatic pass did.
type AutoResult struct {
	Steps   []Step   `json:"steps"`
	Outcome *Outcome `json:"outcome,omitempty"`
	Empty   bool     `json:"empty"`
}

// AutoResolveNext resolves the most recent pending issue the session can see,
// pausing between phases so an operator can follow along. report, when set, sees
// each step as it happens.
func (c *Controller) AutoResolveNext(ctx context.Context, sess *store.Session, report func(Step)) (AutoResult, error) {
	var res AutoResult
	emit := func(p Phase, msg string) {
		s := Step{Phase: p, Message: msg}
		res.Steps = append(res.Steps, s)
		if report != nil {
			report(s)
		}
	}

	l, err := c.ListPending(ctx, sess)
	if err != nil {
		return res, err
	}
	if len(l.Issues) == 0 {
		res.Empty = true
		emit(PhaseAllClear, msgAllClear)
		return res, nil
	}
	issue := l.Issues[0]

	emit(PhaseProcessing, msgProcessing)
	if err := c.sleep(ctx, c.opt.FetchDelay); err != nil {
		return res, err
	}
	emit(PhaseDispatching, dispatchMessage(issue))
	if err := c.sleep(ctx, c.opt.DispatchDelay); err != nil {
		return res, err
	}

	out, err := c.Resolve(ctx, sess, issue, true)
	res.Outcome = &out
	if err != nil {
		emit(PhaseFailed, msgFailed)
		return res, err
	}
	emit(PhaseResolved, fmt.Sprintf("Resolved: %s in %s. Moving to next issue...", issue.SKU, issue.City))
	if err := c.sleep(ctx, c.opt.SettleDelay); err != nil {
		return res, err
	}
	return res, nil
}
