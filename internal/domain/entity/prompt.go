package entity

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one role-tagged instruction sent to the completion service.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
