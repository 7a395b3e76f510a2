package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateCampaignRequest struct {
	Name       string    `json:"name"`
	Budget     string    `json:"budget"`
	DailyLimit *string   `json:"daily_limit"`
	Cards      []CardDTO `json:"cards"`
}

// CampaignPatchDTO carries a sparse edit; absent keys leave the campaign
// field untouched.
type CampaignPatchDTO struct {
	Name       *string        `json:"name"`
	Budget     *string        `json:"budget"`
	DailyLimit *string        `json:"daily_limit"`
	Status     *string        `json:"status"`
	Cards      []CardPatchDTO `json:"cards"`
}

type CardPatchDTO struct {
	CardID       string  `json:"card_id"`
	Headline     *string `json:"headline"`
	Body         *string `json:"body"`
	MediaURL     *string `json:"media_url"`
	CallToAction *string `json:"call_to_action"`
}

type SubmitChangeRequest struct {
	Data CampaignPatchDTO `json:"data"`
}

// DecideChangeRequest drives the PUT endpoint. Status selects the verb:
// approved, rejected, canceled, or pending to edit the stored proposal.
type DecideChangeRequest struct {
	Status          string            `json:"status"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	Data            *CampaignPatchDTO `json:"data,omitempty"`
}

type CardDTO struct {
	CardID       string `json:"card_id"`
	Headline     string `json:"headline"`
	Body         string `json:"body"`
	MediaURL     string `json:"media_url,omitempty"`
	CallToAction string `json:"call_to_action,omitempty"`
}

type StatusHistoryEntryDTO struct {
	OccurredAt string `json:"occurred_at"`
	ActorID    string `json:"actor_id"`
	ActorLabel string `json:"actor_label,omitempty"`
	Status     string `json:"status"`
}

type CampaignDTO struct {
	CampaignID             string                  `json:"campaign_id"`
	AccountID              string                  `json:"account_id"`
	Name                   string                  `json:"name"`
	Status                 string                  `json:"status"`
	Budget                 string                  `json:"budget"`
	DailyLimit             string                  `json:"daily_limit,omitempty"`
	Cards                  []CardDTO               `json:"cards"`
	OutstandingProposalRef string                  `json:"outstanding_proposal_ref,omitempty"`
	RejectionReason        string                  `json:"rejection_reason,omitempty"`
	StatusHistory          []StatusHistoryEntryDTO `json:"status_history,omitempty"`
	CreatedAt              string                  `json:"created_at"`
	UpdatedAt              string                  `json:"updated_at"`
}

type ChangeRequestDTO struct {
	RequestID       string           `json:"request_id"`
	CampaignID      string           `json:"campaign_id"`
	AccountID       string           `json:"account_id"`
	RequestedBy     string           `json:"requested_by"`
	Status          string           `json:"status"`
	Kind            string           `json:"kind"`
	Data            CampaignPatchDTO `json:"data"`
	AutoApproved    bool             `json:"auto_approved"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	CreatedAt       string           `json:"created_at"`
	UpdatedAt       string           `json:"updated_at"`
	DecidedBy       string           `json:"decided_by,omitempty"`
	DecidedAt       string           `json:"decided_at,omitempty"`
}

type CreateCampaignResponse struct {
	Campaign CampaignDTO `json:"campaign"`
}

type GetCampaignResponse struct {
	Campaign CampaignDTO `json:"campaign"`
}

type SubmitChangeResponse struct {
	Request ChangeRequestDTO `json:"change_request"`
}

type GetChangeResponse struct {
	Request ChangeRequestDTO `json:"change_request"`
}

type ListChangesResponse struct {
	Items []ChangeRequestDTO `json:"items"`
}

type DecideChangeResponse struct {
	Request ChangeRequestDTO `json:"change_request"`
}

// InsufficientCreditResponse is the payment-required body: the shortfall a
// deposit of at least DepositAmount would cover.
type InsufficientCreditResponse struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	DepositAmount string `json:"deposit_amount"`
}
