package request

// CreateInvitationRequest is the request body for inviting a user
type CreateInvitationRequest struct {
	ToUserID string `json:"to_user_id"`
}

// MakeMoveRequest is the request body for placing a mark.
// Position is a pointer so a missing field can be told apart from cell 0.
type MakeMoveRequest struct {
	Position *int `json:"position"`
}
