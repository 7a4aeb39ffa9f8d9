package domain

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleVolunteer Role = "volunteer"
)

// Volunteer is a registered participant. ID is the Telegram user id, which
// doubles as the chat id reminders are delivered to.
type Volunteer struct {
	ID       int64
	Username string
	Name     string
	Role     Role
}
