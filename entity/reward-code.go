package entity

import (
	"net/http"
	"time"
	"qreward/lib/validate"
)

// RewardCode is a single-use token representing one customer's won prize.
// The only mutation it ever sees after insert is the redemption transition,
// performed as a conditional write on `redeemed=false` at the storage layer.
type RewardCode struct {
	Code            string    `json:"code" bson:"code"`
	ProjectId       string    `json:"project_id" bson:"project_id"`
	Prize           string    `json:"prize" bson:"prize"`
	UserEmail       string    `json:"user_email,omitempty" bson:"user_email,omitempty"`
	MarketingOptIn  bool      `json:"marketing_opt_in" bson:"marketing_opt_in"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt       time.Time `json:"expires_at" bson:"expires_at"`
	ReviewClickedAt time.Time `json:"review_clicked_at,omitempty" bson:"review_clicked_at,omitempty"`
	Redeemed        bool      `json:"redeemed" bson:"redeemed"`
	RedeemedAt      time.Time `json:"redeemed_at,omitempty" bson:"redeemed_at,omitempty"`
}

func (r *RewardCode) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// IssueParams is the request body for issuing a new reward code.
type IssueParams struct {
	ProjectId      string `json:"project_id" validate:"required,min=1,max=64"`
	Email          string `json:"email,omitempty" validate:"omitempty,email"`
	MarketingOptIn bool   `json:"marketing_opt_in,omitempty"`
}

func (i *IssueParams) Bind(_ *http.Request) error {
	return validate.Struct(i)
}

// ReviewParams identifies the reward code to mark as clicked-through, either
// directly by code or by the most recently issued code for (project, email).
type ReviewParams struct {
	ProjectId string `json:"project_id" validate:"required,min=1,max=64"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Code      string `json:"code,omitempty"`
}

func (p *ReviewParams) Bind(_ *http.Request) error {
	return validate.Struct(p)
}

// IssuedReward is the issuance response returned to the caller, including the
// customer-facing links so the presentation layer never re-derives them.
type IssuedReward struct {
	Code      string    `json:"code"`
	Prize     string    `json:"prize"`
	ExpiresAt time.Time `json:"expires_at"`
	RedeemUrl string    `json:"redeem_url,omitempty"`
	ReviewUrl string    `json:"review_url,omitempty"`
}

// Redemption is what the customer sees after a successful redeem.
type Redemption struct {
	Prize      string           `json:"prize"`
	CouponCode string           `json:"coupon_code,omitempty"`
	Disclaimer string           `json:"disclaimer,omitempty"`
	Business   *BusinessDisplay `json:"business"`
}
