package entity

import (
	"net/http"
	"time"
	"qreward/lib/validate"
)

// ReviewClick is an append-only funnel event: one row per scan or visit.
// It feeds the external analytics dashboard and never gates redemption.
type ReviewClick struct {
	ProjectId string    `json:"project_id" bson:"project_id"`
	Rating    int       `json:"rating,omitempty" bson:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// ScanParams records a funnel event for a project, optionally with the
// rating the customer gave before spinning the wheel.
type ScanParams struct {
	ProjectId string `json:"project_id" validate:"required,min=1,max=64"`
	Rating    int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
}

func (s *ScanParams) Bind(_ *http.Request) error {
	return validate.Struct(s)
}
