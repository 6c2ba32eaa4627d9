package domain

// PaymentStatusEvent is the message payload consumed from the payment gateway's
// webhook relay. It carries the canonical state of a gateway payment so the
// local payments table can be kept current for manual reconciliation.
type PaymentStatusEvent struct {
	Reference string                 `json:"reference"`
	Status    string                 `json:"status"`
	Amount    int64                  `json:"amount"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Reason    string                 `json:"reason,omitempty"`
}

// VoteRecordedEvent is published after a vote commit so downstream services
// (notifications, analytics) can react asynchronously.
type VoteRecordedEvent struct {
	VoteID           string `json:"vote_id"`
	CandidateID      string `json:"candidate_id"`
	EventID          string `json:"event_id"`
	CategoryID       string `json:"category_id"`
	NumberOfVotes    int64  `json:"number_of_votes"`
	PaymentReference string `json:"payment_reference"`
	AmountCharged    int64  `json:"amount_charged"`
}
