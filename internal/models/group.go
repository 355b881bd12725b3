package models

// Member roles.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Group is a set of users who split receipts together.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string

	Description string

	// CreatedBy is the user ID of the owner.
	CreatedBy string

	// Members lists every member, owner included.
	Members []GroupMember

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// GroupMember links a user to a group.
type GroupMember struct {
	UserID   string
	Role     string
	JoinedAt int64
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// MemberIDs returns the user IDs of all members.
func (g *Group) MemberIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.UserID
	}
	return ids
}
