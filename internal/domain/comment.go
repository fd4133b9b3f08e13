package domain

import "strings"

// AuthorRole is the role of a comment author in the ticketing backend.
type AuthorRole string

const (
	AuthorRoleAgent   AuthorRole = "agent"
	AuthorRoleEndUser AuthorRole = "end-user"
	AuthorRoleOther   AuthorRole = "other"
)

// ParseAuthorRole maps backend role names onto AuthorRole. Admins count as agents.
func ParseAuthorRole(role string) AuthorRole {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "agent", "admin":
		return AuthorRoleAgent
	case "end-user", "end_user", "enduser":
		return AuthorRoleEndUser
	default:
		return AuthorRoleOther
	}
}

// Visibility differentiates public replies from internal notes.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityInternal Visibility = "internal"
)

// Comment is one entry in a ticket thread.
type Comment struct {
	Body       string
	AuthorName string
	AuthorRole AuthorRole
	Visibility Visibility
}

// Public reports whether the requester can see the comment.
func (c Comment) Public() bool { return c.Visibility == VisibilityPublic }

// Transcript is the ordered thread of a ticket, oldest first.
type Transcript struct {
	Channel  string
	Comments []Comment
}

// LastPublic returns up to n trailing public comments in thread order.
func (t Transcript) LastPublic(n int) []Comment {
	if n <= 0 {
		return nil
	}
	out := make([]Comment, 0, n)
	for i := len(t.Comments) - 1; i >= 0 && len(out) < n; i-- {
		if t.Comments[i].Public() {
			out = append(out, t.Comments[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
