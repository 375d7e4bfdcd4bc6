package workflow

// PostingStatus is the lifecycle state of an internship posting.
type PostingStatus string

// Posting lifecycle states.
const (
	PostingDraft    PostingStatus = "draft"
	PostingPending  PostingStatus = "pending"
	PostingApproved PostingStatus = "approved"
	PostingOpen     PostingStatus = "open"
	PostingClosed   PostingStatus = "closed"
	PostingRejected PostingStatus = "rejected"
)

type postingRule struct {
	to    PostingStatus
	roles []Role
}

// postingTransitions is the single authoritative table for posting
// status changes. Every actor-facing operation consults it; no screen
// or handler carries its own copy.
var postingTransitions = map[PostingStatus][]postingRule{
	PostingDraft: {
		{to: PostingPending, roles: []Role{RoleEmployer}},
	},
	PostingPending: {
		{to: PostingApproved, roles: []Role{RoleHead, RoleSuperadmin}},
		{to: PostingRejected, roles: []Role{RoleHead, RoleSuperadmin}},
	},
	PostingApproved: {
		{to: PostingOpen, roles: []Role{RoleEmployer}},
		{to: PostingClosed, roles: []Role{RoleEmployer}},
	},
	PostingOpen: {
		{to: PostingClosed, roles: []Role{RoleEmployer}},
	},
	PostingClosed: {
		{to: PostingOpen, roles: []Role{RoleEmployer}},
	},
	PostingRejected: {
		{to: PostingPending, roles: []Role{RoleEmployer}},
	},
}

// CanTransitionPosting verifies both the state edge and the actor's
// authority for it. It returns ErrInvalidTransition when the edge does
// not exist and ErrUnauthorized when it exists but not for this role.
func CanTransitionPosting(actor Actor, from, to PostingStatus) error {
	for _, rule := range postingTransitions[from] {
		if rule.to != to {
			continue
		}
		if roleIn(actor.Role, rule.roles...) {
			return nil
		}
		return ErrUnauthorized
	}
	return ErrInvalidTransition
}

// InitialPostingStatus is the status a newly created posting starts in.
func InitialPostingStatus(isDraft bool) PostingStatus {
	if isDraft {
		return PostingDraft
	}
	return PostingPending
}
