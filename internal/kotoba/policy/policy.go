// Package policy defines the authorization verdict contract consumed by the
// router, plus a rules-file evaluator for deployments that do not plug in an
// external policy service.
package policy

import "context"

// Decision is the policy verdict for one (user, repo, action) triple.
type Decision string

const (
	Allow               = Decision("allow")
	Deny                = Decision("deny")
	RequireConfirmation = Decision("require_confirmation")
)

// Result carries the verdict and a human-readable reason. The reason is
// surfaced to the user verbatim on denial, so implementations must keep it
// presentable.
type Result struct {
	Decision Decision
	Reason   string
}

// Evaluator is the collaborator contract the router gates side-effecting
// actions through.
type Evaluator interface {
	Evaluate(ctx context.Context, user, repo, actionType string) (Result, error)
}
