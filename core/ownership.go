package core

// Owned is any resource with a recorded owner.
type Owned interface {
	OwnerID() string
}

// AuthorizeOwner is the synchronous pre-check run before an edit/delete
// mutation on a user-authored resource. A mismatch short-circuits with a
// PermissionError before any speculative change or network call is made.
// The check is advisory only; the server re-validates.
func AuthorizeOwner(actorID string, res Owned, denialMsg string) error {
	if actorID == "" || actorID != res.OwnerID() {
		return NewPermissionError(denialMsg)
	}
	return nil
}
