package models

// Membership roles.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Group represents a set of users sharing expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Work Lunch").
	Name string

	// Description is optional free text.
	Description string

	// CreatorID is the user who created the group. The creator always counts
	// as a member, even without a membership row.
	CreatorID string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// Membership links a user to a group.
type Membership struct {
	GroupID  string
	UserID   string
	Role     string
	JoinedAt int64
}
