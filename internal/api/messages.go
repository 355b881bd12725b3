package api

// Amounts in requests are decimal strings ("12.50") converted to minor units
// at the service boundary. Amounts in responses are Money values.

// Money is an amount in minor units with its display form.
type Money struct {
	Minor   int64  `json:"minor"`
	Display string `json:"display"`
}

// Auth

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	CreatedAt   int64  `json:"created_at"`
}

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required,max=80"`
	Password    string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserRequest struct{}

type UserResponse struct {
	User User `json:"user"`
}

// Groups

type GroupMember struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role"`
	JoinedAt    int64  `json:"joined_at"`
}

type Group struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	CreatedBy   string        `json:"created_by"`
	Members     []GroupMember `json:"members"`
	CreatedAt   int64         `json:"created_at"`
}

type CreateGroupRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	MemberIDs   []string `json:"member_ids" validate:"dive,required"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

// UpdateGroupRequest changes only the fields that are set.
type UpdateGroupRequest struct {
	GroupID     string  `json:"group_id" validate:"required"`
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []Group `json:"groups"`
}

type AddMembersRequest struct {
	GroupID   string   `json:"group_id" validate:"required"`
	MemberIDs []string `json:"member_ids" validate:"required,min=1,dive,required"`
}

type RemoveMemberRequest struct {
	GroupID  string `json:"group_id" validate:"required"`
	MemberID string `json:"member_id" validate:"required"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type DeleteGroupResponse struct{}

// GroupResponse is returned by every call that yields a single group.
type GroupResponse struct {
	Group Group `json:"group"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type MemberBalance struct {
	MemberID   string `json:"member_id"`
	NetBalance Money  `json:"net_balance"`
	TotalPaid  Money  `json:"total_paid"`
	TotalOwed  Money  `json:"total_owed"`
}

type DebtEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount Money  `json:"amount"`
}

type GetGroupBalancesResponse struct {
	Balances []MemberBalance `json:"balances"`
	Debts    []DebtEdge      `json:"debts"`
}

// Receipts

type ItemInput struct {
	Name      string `json:"name" validate:"required,max=200"`
	UnitPrice string `json:"unit_price" validate:"required"`
	// Quantity defaults to 1 when zero.
	Quantity int64 `json:"quantity" validate:"min=0"`
}

type Claim struct {
	MemberID string `json:"member_id" validate:"required"`
	Units    int64  `json:"units"`
}

type Item struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	UnitPrice     Money   `json:"unit_price"`
	Quantity      int64   `json:"quantity"`
	LineTotal     Money   `json:"line_total"`
	Mode          string  `json:"mode,omitempty"`
	Claims        []Claim `json:"claims"`
	FullyAssigned bool    `json:"fully_assigned"`
}

type Participant struct {
	MemberID string `json:"member_id"`
	Amount   Money  `json:"amount"`
	IsPaid   bool   `json:"is_paid"`
}

type ItemPortion struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
	Units  int64  `json:"units"`
	Amount Money  `json:"amount"`
}

type MemberShare struct {
	MemberID     string        `json:"member_id"`
	ItemSubtotal Money         `json:"item_subtotal"`
	Extras       Money         `json:"extras"`
	Total        Money         `json:"total"`
	Items        []ItemPortion `json:"items"`
}

// Split is a computed split. Ready means every cent is owed by someone.
type Split struct {
	Shares          []MemberShare `json:"shares"`
	UnassignedItems []string      `json:"unassigned_items"`
	Unallocated     Money         `json:"unallocated"`
	Subtotal        Money         `json:"subtotal"`
	Tax             Money         `json:"tax"`
	Tip             Money         `json:"tip"`
	Total           Money         `json:"total"`
	Ready           bool          `json:"ready"`
}

type Receipt struct {
	ID           string        `json:"id"`
	GroupID      string        `json:"group_id"`
	CreatedBy    string        `json:"created_by"`
	MerchantName string        `json:"merchant_name,omitempty"`
	Description  string        `json:"description,omitempty"`
	ImageURL     string        `json:"image_url,omitempty"`
	Subtotal     *Money        `json:"subtotal,omitempty"`
	Tax          Money         `json:"tax"`
	Tip          Money         `json:"tip"`
	Status       string        `json:"status"`
	Items        []Item        `json:"items"`
	Participants []Participant `json:"participants,omitempty"`
	Split        *Split        `json:"split,omitempty"`
	CreatedAt    int64         `json:"created_at"`
	UpdatedAt    int64         `json:"updated_at"`
}

// ReceiptResponse is returned by every call that yields a single receipt.
type ReceiptResponse struct {
	Receipt Receipt `json:"receipt"`
}

type CreateReceiptRequest struct {
	GroupID      string      `json:"group_id" validate:"required"`
	MerchantName string      `json:"merchant_name" validate:"max=200"`
	Description  string      `json:"description" validate:"max=1000"`
	Subtotal     string      `json:"subtotal"`
	Tax          string      `json:"tax"`
	Tip          string      `json:"tip"`
	Items        []ItemInput `json:"items" validate:"dive"`
}

type GetReceiptRequest struct {
	ReceiptID string `json:"receipt_id" validate:"required"`
}

type ListReceiptsRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type ListReceiptsResponse struct {
	Receipts []Receipt `json:"receipts"`
}

// UpdateReceiptRequest changes only the fields that are set. An empty
// Subtotal clears it back to the sum of the items.
type UpdateReceiptRequest struct {
	ReceiptID    string  `json:"receipt_id" validate:"required"`
	MerchantName *string `json:"merchant_name" validate:"omitempty,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=1000"`
	Subtotal     *string `json:"subtotal"`
	Tax          *string `json:"tax"`
	Tip          *string `json:"tip"`
}

type DeleteReceiptRequest struct {
	ReceiptID string `json:"receipt_id" validate:"required"`
}

type DeleteReceiptResponse struct{}

type AddItemsRequest struct {
	ReceiptID string      `json:"receipt_id" validate:"required"`
	Items     []ItemInput `json:"items" validate:"required,min=1,dive"`
}

type UpdateItemRequest struct {
	ReceiptID string  `json:"receipt_id" validate:"required"`
	ItemID    string  `json:"item_id" validate:"required"`
	Name      *string `json:"name" validate:"omitempty,max=200"`
	UnitPrice *string `json:"unit_price"`
	Quantity  *int64  `json:"quantity" validate:"omitempty,min=1"`
}

type DeleteItemRequest struct {
	ReceiptID string `json:"receipt_id" validate:"required"`
	ItemID    string `json:"item_id" validate:"required"`
}

// AssignItemRequest claims units of an item. MemberID defaults to the caller.
type AssignItemRequest struct {
	ReceiptID string `json:"receipt_id" validate:"required"`
	ItemID    string `json:"item_id" validate:"required"`
	MemberID  string `json:"member_id"`
	Units     int64  `json:"units" validate:"min=1"`
}

// ShareItemRequest splits an item equally among members.
type ShareItemRequest struct {
	ReceiptID string   `json:"receipt_id" validate:"required"`
	ItemID    string   `json:"item_id" validate:"required"`
	MemberIDs []string `json:"member_ids" validate:"required,min=1,dive,required"`
}

// UnassignItemRequest drops a claim. MemberID defaults to the caller.
type UnassignItemRequest struct {
	ReceiptID string `json:"receipt_id" validate:"required"`
	ItemID    string `json:"item_id" validate:"required"`
	MemberID  string `json:"member_id"`
}

type ComputeSplitRequest struct {
	ReceiptID string `json:"receipt_id" validate:"required"`
}

type SplitResponse struct {
	Split Split `json:"split"`
}

type PreviewItem struct {
	ID        string  `json:"id" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	UnitPrice string  `json:"unit_price" validate:"required"`
	Quantity  int64   `json:"quantity" validate:"min=0"`
	Mode      string  `json:"mode" validate:"omitempty,oneof=units equal"`
	Claims    []Claim `json:"claims" validate:"dive"`
}

// PreviewSplitRequest computes a split without touching storage.
type PreviewSplitRequest struct {
	Items    []PreviewItem `json:"items" validate:"dive"`
	Subtotal string        `json:"subtotal"`
	Tax      string        `json:"tax"`
	Tip      string        `json:"tip"`
}

type FinalizeReceiptRequest struct {
	ReceiptID string `json:"receipt_id" validate:"required"`
}

// MarkPaidRequest sets a participant's paid flag. MemberID defaults to the caller.
type MarkPaidRequest struct {
	ReceiptID string `json:"receipt_id" validate:"required"`
	MemberID  string `json:"member_id"`
	Paid      bool   `json:"paid"`
}

// UploadImageRequest carries the photo bytes (base64 in JSON).
type UploadImageRequest struct {
	ReceiptID string `json:"receipt_id" validate:"required"`
	Image     []byte `json:"image" validate:"required"`
}
