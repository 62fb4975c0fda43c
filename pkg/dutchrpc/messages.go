package dutchrpc

import "github.com/shopspring/decimal"

type Group struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	OwnerID     string          `json:"owner_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	MemberCount int             `json:"member_count"`
	CreatedAt   int64           `json:"created_at"`
}

// Member is a group member with what they paid and their balance against the
// equal share. Positive balance = owed money, negative = owes money.
type Member struct {
	UserID   string          `json:"user_id"`
	Username string          `json:"username"`
	Paid     decimal.Decimal `json:"paid"`
	Balance  decimal.Decimal `json:"balance"`
}

// Transfer is one payment of the settlement: From pays Amount to To.
type Transfer struct {
	FromUserID string          `json:"from_user_id"`
	ToUserID   string          `json:"to_user_id"`
	Amount     decimal.Decimal `json:"amount"`
}

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"created_at"`
}

// CreateGroupRequest names members and payers by username. The caller always
// becomes a member and must appear in Paid.
type CreateGroupRequest struct {
	Name        string                     `json:"name"`
	Members     []string                   `json:"members"`
	TotalAmount decimal.Decimal            `json:"total_amount"`
	Paid        map[string]decimal.Decimal `json:"paid"`
}

type CreateGroupResponse struct {
	Group     *Group      `json:"group"`
	Transfers []*Transfer `json:"transfers"`
}

type RecomputeRequest struct {
	GroupID string `json:"group_id"`
}

type RecomputeResponse struct {
	Transfers []*Transfer `json:"transfers"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupResponse struct {
	Group     *Group      `json:"group"`
	Members   []*Member   `json:"members"`
	Transfers []*Transfer `json:"transfers"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type NewMember struct {
	Username string           `json:"username"`
	Spent    *decimal.Decimal `json:"spent,omitempty"`
}

// UpdateGroupRequest edits a group. Omitted fields are left unchanged.
// MemberSpending replaces paid amounts, keyed by username.
type UpdateGroupRequest struct {
	GroupID        string                     `json:"group_id"`
	Name           *string                    `json:"name,omitempty"`
	TotalAmount    *decimal.Decimal           `json:"total_amount,omitempty"`
	NewMembers     []*NewMember               `json:"new_members,omitempty"`
	MemberSpending map[string]decimal.Decimal `json:"member_spending,omitempty"`
}

type UpdateGroupResponse struct {
	Group          *Group      `json:"group"`
	AddedMembers   []string    `json:"added_members"`
	SkippedMembers []string    `json:"skipped_members"`
	Recalculated   bool        `json:"recalculated"`
	Transfers      []*Transfer `json:"transfers"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"group_id"`
}

type DeleteGroupResponse struct{}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// LoginRequest accepts either a username or an email as Identifier.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}
