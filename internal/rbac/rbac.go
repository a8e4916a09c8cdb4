package rbac

type Role string
type Action string

const (
	RoleViewer   Role = "viewer"
	RoleReviewer Role = "reviewer"
	RoleEditor   Role = "editor"
	RoleAdmin    Role = "admin"
)

const (
	ActionRead          Action = "read"
	ActionReview        Action = "review"
	ActionWrite         Action = "write"
	ActionManageLibrary Action = "manage_library"
	ActionAdmin         Action = "admin"
)

// DefaultRole is given to new signups.
const DefaultRole = RoleEditor

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleEditor:
		return action == ActionRead || action == ActionWrite || action == ActionReview || action == ActionManageLibrary
	case RoleReviewer:
		return action == ActionRead || action == ActionReview
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleViewer, RoleReviewer, RoleEditor, RoleAdmin:
		return Role(role)
	default:
		return RoleViewer
	}
}
