package group

import "time"

// Group is a named chat room with an admin and a member list.
// ActiveCallID is the active-call pointer: the id of the group call
// currently running for this group, or empty. The call orchestrator is the
// only writer of that field.
type Group struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	AdminID      string    `json:"adminId"`
	MemberIDs    []string  `json:"memberIds"`
	ActiveCallID string    `json:"activeCallId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasMember reports whether userID is in the member list.
func (g Group) HasMember(userID string) bool {
	for _, id := range g.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
