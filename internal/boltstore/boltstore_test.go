package boltstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"qreward/entity"
	"qreward/internal/boltstore"
)

func newStore(t *testing.T) *boltstore.BoltStore {
	t.Helper()
	store, err := boltstore.New(filepath.Join(t.TempDir(), "qreward-test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func saveCode(t *testing.T, store *boltstore.BoltStore, code string, createdAt time.Time) {
	t.Helper()
	err := store.SaveRewardCode(context.Background(), &entity.RewardCode{
		Code:      code,
		ProjectId: "p1",
		Prize:     "Free Coffee",
		UserEmail: "a@b.com",
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(7 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("save reward code: %v", err)
	}
}

func TestGetRewardCodeMiss(t *testing.T) {
	store := newStore(t)

	rc, err := store.GetRewardCode(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rc != nil {
		t.Fatalf("got %+v, want nil for a miss", rc)
	}
}

func TestRedeemConditionalWrite(t *testing.T) {
	store := newStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	saveCode(t, store, "code-1", now)

	updated, err := store.RedeemRewardCode(context.Background(), "code-1", now)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if updated != 1 {
		t.Fatalf("first redeem updated = %d, want 1", updated)
	}

	// second attempt matches zero rows, stored timestamp stays
	updated, err = store.RedeemRewardCode(context.Background(), "code-1", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("redeem again: %v", err)
	}
	if updated != 0 {
		t.Fatalf("second redeem updated = %d, want 0", updated)
	}

	rc, err := store.GetRewardCode(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !rc.Redeemed || !rc.RedeemedAt.Equal(now) {
		t.Fatalf("stored code = %+v", rc)
	}
}

func TestRedeemUnknownCode(t *testing.T) {
	store := newStore(t)

	updated, err := store.RedeemRewardCode(context.Background(), "ghost", time.Now())
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if updated != 0 {
		t.Fatalf("updated = %d, want 0", updated)
	}
}

func TestMarkReviewClickedOnce(t *testing.T) {
	store := newStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	saveCode(t, store, "code-1", now)

	updated, err := store.MarkReviewClicked(context.Background(), "code-1", now)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if updated != 1 {
		t.Fatalf("first mark updated = %d, want 1", updated)
	}

	updated, err = store.MarkReviewClicked(context.Background(), "code-1", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("mark again: %v", err)
	}
	if updated != 0 {
		t.Fatalf("second mark updated = %d, want 0", updated)
	}

	rc, _ := store.GetRewardCode(context.Background(), "code-1")
	if !rc.ReviewClickedAt.Equal(now) {
		t.Fatalf("review_clicked_at = %v, want first timestamp %v", rc.ReviewClickedAt, now)
	}
}

func TestLatestRewardCode(t *testing.T) {
	store := newStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	saveCode(t, store, "old", now.Add(-time.Hour))
	saveCode(t, store, "new", now)

	rc, err := store.LatestRewardCode(context.Background(), "p1", "a@b.com")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if rc == nil || rc.Code != "new" {
		t.Fatalf("latest = %+v, want code new", rc)
	}

	rc, err = store.LatestRewardCode(context.Background(), "p1", "other@b.com")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if rc != nil {
		t.Fatalf("latest = %+v, want nil for unknown email", rc)
	}
}

func TestProjectAndProfileRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	project := &entity.Project{
		Id:              "p1",
		OwnerId:         "owner-1",
		Prizes:          []entity.Prize{{Label: "Free Coffee", Probability: 1, CouponCode: "C10"}},
		QrCouponEnabled: true,
		ExpiryDays:      14,
	}
	if err := store.SaveProject(ctx, project); err != nil {
		t.Fatalf("save project: %v", err)
	}
	got, err := store.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got == nil || len(got.Prizes) != 1 || got.Prizes[0].CouponCode != "C10" {
		t.Fatalf("project = %+v", got)
	}

	profile := &entity.BusinessProfile{OwnerId: "owner-1", Name: "Cafe Milano"}
	if err = store.SaveBusinessProfile(ctx, profile); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	gotProfile, err := store.GetBusinessProfile(ctx, "owner-1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if gotProfile == nil || gotProfile.Name != "Cafe Milano" {
		t.Fatalf("profile = %+v", gotProfile)
	}
}

func TestUserRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	user := &entity.User{Username: "dash", Token: "tok-1", RegisteredAt: time.Now().UTC().Truncate(time.Second)}
	if err := store.SaveUser(ctx, user); err != nil {
		t.Fatalf("save user: %v", err)
	}

	got, err := store.GetUser(ctx, "tok-1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got == nil || got.Username != "dash" {
		t.Fatalf("user = %+v", got)
	}

	got, err = store.GetUser(ctx, "unknown")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got != nil {
		t.Fatalf("user = %+v, want nil for unknown token", got)
	}
}
