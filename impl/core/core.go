// Package core implements the reward code & redemption engine: prize
// selection, code issuance, review-click tracking and the exactly-once
// redemption transition.
//
// The engine is stateless and request-driven. The single mutable shared
// resource is the reward code row, and its redemption transition happens as
// one conditional write at the storage layer; the engine itself holds no
// locks and performs no internal retries.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"qreward/entity"
	"qreward/impl/prize"
	"qreward/lib/clock"
	"qreward/lib/sl"
)

type AuthService interface {
	UserByToken(ctx context.Context, token string) (*entity.User, error)
}

// Database defines the storage operations the engine depends on.
// Implemented by internal/database (MongoDB), internal/sqlstore (MySQL)
// and internal/boltstore (embedded).
type Database interface {
	GetProject(ctx context.Context, id string) (*entity.Project, error)
	GetBusinessProfile(ctx context.Context, ownerId string) (*entity.BusinessProfile, error)
	SaveRewardCode(ctx context.Context, rc *entity.RewardCode) error
	GetRewardCode(ctx context.Context, code string) (*entity.RewardCode, error)
	LatestRewardCode(ctx context.Context, projectId, email string) (*entity.RewardCode, error)
	// MarkReviewClicked sets review_clicked_at only where it is currently
	// unset and reports the number of rows updated (0 or 1).
	MarkReviewClicked(ctx context.Context, code string, at time.Time) (int64, error)
	// RedeemRewardCode performs the redemption transition as a conditional
	// write: redeemed=true, redeemed_at=at, only where redeemed is still
	// false. Reports the number of rows updated (0 or 1).
	RedeemRewardCode(ctx context.Context, code string, at time.Time) (int64, error)
	SaveReviewClick(ctx context.Context, click *entity.ReviewClick) error
}

type Config struct {
	BaseUrl           string
	DefaultExpiryDays int
}

type Core struct {
	db   Database
	auth AuthService
	conf Config
	log  *slog.Logger
}

func New(db Database, conf Config, log *slog.Logger) *Core {
	if db == nil {
		panic("database is nil")
	}
	if conf.DefaultExpiryDays < 1 {
		conf.DefaultExpiryDays = 7
	}
	return &Core{
		db:   db,
		conf: conf,
		log:  log.With(sl.Module("core")),
	}
}

func (c *Core) SetAuthService(auth AuthService) {
	c.auth = auth
}

func (c *Core) AuthenticateByToken(ctx context.Context, token string) (*entity.User, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.auth.UserByToken(ctx, token)
}

// IssueReward selects a prize from the project's current table and persists a
// new single-use reward code bound to it. No notifications are sent here;
// delivery is an external collaborator's job.
func (c *Core) IssueReward(ctx context.Context, params *entity.IssueParams) (*entity.IssuedReward, error) {
	project, err := c.db.GetProject(ctx, params.ProjectId)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, entity.ErrProjectNotFound
	}
	if len(project.Prizes) == 0 {
		return nil, entity.ErrProjectNotConfigured
	}

	label, err := prize.Select(project.Prizes)
	if err != nil {
		return nil, err
	}

	issued := time.Now().UTC()
	rc := &entity.RewardCode{
		Code:           uuid.NewString(),
		ProjectId:      project.Id,
		Prize:          label,
		UserEmail:      strings.ToLower(params.Email),
		MarketingOptIn: params.MarketingOptIn,
		CreatedAt:      issued,
		ExpiresAt:      clock.Expiry(issued, project.ExpiryDays, c.conf.DefaultExpiryDays),
	}
	if err = c.db.SaveRewardCode(ctx, rc); err != nil {
		return nil, fmt.Errorf("save reward code: %w", err)
	}
	c.log.Debug("reward issued",
		slog.String("project", project.Id),
		slog.String("prize", label),
		sl.Code(rc.Code),
	)

	return &entity.IssuedReward{
		Code:      rc.Code,
		Prize:     rc.Prize,
		ExpiresAt: rc.ExpiresAt,
		RedeemUrl: c.RedeemLink(rc.Code),
		ReviewUrl: c.ReviewLink(project),
	}, nil
}

// MarkReviewed records the moment a customer followed through to the external
// review link. An explicit code wins; otherwise the most recently issued code
// for (project, email) is the candidate. The update is conditioned on
// review_clicked_at being unset, so a repeat call is a harmless no-op: the
// returned count distinguishes "marked now" (1) from "already marked or
// nothing matched" (0), and neither outcome blocks redemption.
func (c *Core) MarkReviewed(ctx context.Context, params *entity.ReviewParams) (int64, error) {
	code := params.Code
	if code == "" {
		if params.Email == "" {
			return 0, nil
		}
		rc, err := c.db.LatestRewardCode(ctx, params.ProjectId, strings.ToLower(params.Email))
		if err != nil {
			return 0, fmt.Errorf("resolve reward code: %w", err)
		}
		if rc == nil {
			return 0, nil
		}
		code = rc.Code
	}

	updated, err := c.db.MarkReviewClicked(ctx, code, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark review clicked: %w", err)
	}

	// funnel row is best-effort analytics; its failure never fails the call
	click := &entity.ReviewClick{ProjectId: params.ProjectId, CreatedAt: time.Now().UTC()}
	if err = c.db.SaveReviewClick(ctx, click); err != nil {
		c.log.Warn("save review click", sl.Err(err), slog.String("project", params.ProjectId))
	}

	return updated, nil
}

// RecordScan appends a funnel event for a scan or rating that happens before
// any reward code exists.
func (c *Core) RecordScan(ctx context.Context, params *entity.ScanParams) error {
	click := &entity.ReviewClick{
		ProjectId: params.ProjectId,
		Rating:    params.Rating,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.db.SaveReviewClick(ctx, click); err != nil {
		return fmt.Errorf("save review click: %w", err)
	}
	return nil
}

// Redeem marks a reward code redeemed exactly once and resolves the display
// payload. The early redeemed/expired checks on the value read here are
// advisory; at-most-once is guaranteed solely by the conditional write in
// the storage layer, so two concurrent calls for the same physical code
// yield exactly one success and one ErrAlreadyRedeemed.
func (c *Core) Redeem(ctx context.Context, code string) (*entity.Redemption, error) {
	rc, err := c.db.GetRewardCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load reward code: %w", err)
	}
	if rc == nil {
		return nil, entity.ErrInvalidCode
	}
	if rc.Redeemed {
		return nil, entity.ErrAlreadyRedeemed
	}
	now := time.Now().UTC()
	if rc.IsExpired(now) {
		return nil, entity.ErrExpired
	}

	updated, err := c.db.RedeemRewardCode(ctx, code, now)
	if err != nil {
		return nil, fmt.Errorf("redeem reward code: %w", err)
	}
	if updated == 0 {
		// another concurrent call won the race
		return nil, entity.ErrAlreadyRedeemed
	}
	c.log.Info("reward redeemed",
		slog.String("project", rc.ProjectId),
		slog.String("prize", rc.Prize),
		sl.Code(code),
	)

	project, err := c.db.GetProject(ctx, rc.ProjectId)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, entity.ErrProjectNotFound
	}

	profile, err := c.db.GetBusinessProfile(ctx, project.OwnerId)
	if err != nil {
		return nil, fmt.Errorf("load business profile: %w", err)
	}
	if profile == nil {
		c.log.Error("business profile missing",
			slog.String("project", project.Id),
			slog.String("owner", project.OwnerId),
		)
		return nil, entity.ErrBusinessProfileMissing
	}

	return &entity.Redemption{
		Prize: rc.Prize,
		// coupon resolves against the current prize table, matched by label;
		// rotated or removed entries simply yield no coupon
		CouponCode: project.CouponFor(rc.Prize),
		Disclaimer: project.Disclaimer,
		Business:   profile.Display(),
	}, nil
}

// RedeemLink builds the customer-facing redemption URL; the code is taken
// verbatim, never case-folded.
func (c *Core) RedeemLink(code string) string {
	if c.conf.BaseUrl == "" {
		return ""
	}
	return fmt.Sprintf("%s/redeem/%s", strings.TrimSuffix(c.conf.BaseUrl, "/"), code)
}

// ReviewLink builds the project-facing review URL with a lowercased id.
func (c *Core) ReviewLink(project *entity.Project) string {
	if c.conf.BaseUrl == "" {
		return ""
	}
	return fmt.Sprintf("%s/review/%s", strings.TrimSuffix(c.conf.BaseUrl, "/"), project.ReviewSlug())
}
