package entity

import "strings"

type Language string

const (
	LangEnglish Language = "en"
	LangGerman  Language = "de"
	LangSpanish Language = "es"
)

// Prize is a single row of a project's prize table. Probability is a relative
// weight over the table's own sum, it is not required that weights sum to 1.
type Prize struct {
	Label       string  `json:"label" bson:"label" validate:"required"`
	Probability float64 `json:"probability" bson:"probability" validate:"required,gt=0"`
	CouponCode  string  `json:"coupon_code,omitempty" bson:"coupon_code,omitempty"`
}

// Project is a business's configured prize wheel. The engine only reads it;
// mutations happen in the external profile editor.
type Project struct {
	Id              string   `json:"id" bson:"id" validate:"required"`
	OwnerId         string   `json:"owner_id" bson:"owner_id" validate:"required"`
	Prizes          []Prize  `json:"prizes" bson:"prizes"`
	QrCouponEnabled bool     `json:"qr_coupon_enabled" bson:"qr_coupon_enabled"`
	Disclaimer      string   `json:"disclaimer,omitempty" bson:"disclaimer,omitempty"`
	Language        Language `json:"language,omitempty" bson:"language,omitempty"`
	ExpiryDays      int      `json:"expiry_days" bson:"expiry_days"`
}

// CouponFor matches a won prize label against the current prize table.
// Returns an empty string when coupons are disabled for the project or when
// no entry matches; neither case is an error.
func (p *Project) CouponFor(label string) string {
	if !p.QrCouponEnabled {
		return ""
	}
	for _, prize := range p.Prizes {
		if prize.Label == label {
			return prize.CouponCode
		}
	}
	return ""
}

// ReviewSlug is the project id form used in customer-facing review links.
func (p *Project) ReviewSlug() string {
	return strings.ToLower(p.Id)
}
