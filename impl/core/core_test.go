package core_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"qreward/entity"
	"qreward/impl/core"
)

// memDB is an in-memory Database with the same conditional-write semantics
// the real backends provide: the redemption and review-click updates check
// and mutate under one lock, exactly like a single conditional statement.
type memDB struct {
	mu       sync.Mutex
	projects map[string]*entity.Project
	profiles map[string]*entity.BusinessProfile
	codes    map[string]*entity.RewardCode
	clicks   []*entity.ReviewClick
	failSave error
}

func newMemDB() *memDB {
	return &memDB{
		projects: map[string]*entity.Project{},
		profiles: map[string]*entity.BusinessProfile{},
		codes:    map[string]*entity.RewardCode{},
	}
}

func (m *memDB) GetProject(_ context.Context, id string) (*entity.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memDB) GetBusinessProfile(_ context.Context, ownerId string) (*entity.BusinessProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[ownerId]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memDB) SaveRewardCode(_ context.Context, rc *entity.RewardCode) error {
	if m.failSave != nil {
		return m.failSave
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rc
	m.codes[rc.Code] = &cp
	return nil
}

func (m *memDB) GetRewardCode(_ context.Context, code string) (*entity.RewardCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rc, ok := m.codes[code]
	if !ok {
		return nil, nil
	}
	cp := *rc
	return &cp, nil
}

func (m *memDB) LatestRewardCode(_ context.Context, projectId, email string) (*entity.RewardCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *entity.RewardCode
	for _, rc := range m.codes {
		if rc.ProjectId != projectId || rc.UserEmail != email {
			continue
		}
		if latest == nil || rc.CreatedAt.After(latest.CreatedAt) {
			latest = rc
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *memDB) MarkReviewClicked(_ context.Context, code string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rc, ok := m.codes[code]
	if !ok || !rc.ReviewClickedAt.IsZero() {
		return 0, nil
	}
	rc.ReviewClickedAt = at
	return 1, nil
}

func (m *memDB) RedeemRewardCode(_ context.Context, code string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rc, ok := m.codes[code]
	if !ok || rc.Redeemed {
		return 0, nil
	}
	rc.Redeemed = true
	rc.RedeemedAt = at
	return 1, nil
}

func (m *memDB) SaveReviewClick(_ context.Context, click *entity.ReviewClick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks = append(m.clicks, click)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setup(t *testing.T) (*memDB, *core.Core) {
	t.Helper()
	db := newMemDB()
	db.projects["p1"] = &entity.Project{
		Id:              "p1",
		OwnerId:         "owner-1",
		Prizes:          []entity.Prize{{Label: "Free Coffee", Probability: 1.0, CouponCode: "COFFEE10"}},
		QrCouponEnabled: true,
		Disclaimer:      "one per visit",
		ExpiryDays:      7,
	}
	db.profiles["owner-1"] = &entity.BusinessProfile{
		OwnerId:     "owner-1",
		Name:        "Cafe Milano",
		Phone:       "+48 123",
		CountryCode: "PL",
	}
	engine := core.New(db, core.Config{BaseUrl: "https://qreward.app", DefaultExpiryDays: 7}, discardLogger())
	return db, engine
}

func issue(t *testing.T, engine *core.Core, projectId, email string) *entity.IssuedReward {
	t.Helper()
	issued, err := engine.IssueReward(context.Background(), &entity.IssueParams{
		ProjectId: projectId,
		Email:     email,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return issued
}

func TestIssueReward(t *testing.T) {
	db, engine := setup(t)

	issued := issue(t, engine, "p1", "A@B.com")

	if issued.Prize != "Free Coffee" {
		t.Fatalf("prize = %q, want Free Coffee", issued.Prize)
	}
	if issued.Code == "" || len(issued.Code) < 32 {
		t.Fatalf("code %q does not look like a random token", issued.Code)
	}
	if issued.RedeemUrl != "https://qreward.app/redeem/"+issued.Code {
		t.Fatalf("redeem url = %q", issued.RedeemUrl)
	}
	if issued.ReviewUrl != "https://qreward.app/review/p1" {
		t.Fatalf("review url = %q", issued.ReviewUrl)
	}

	rc := db.codes[issued.Code]
	if rc == nil {
		t.Fatal("reward code not persisted")
	}
	if rc.Redeemed {
		t.Fatal("new code must not be redeemed")
	}
	if rc.UserEmail != "a@b.com" {
		t.Fatalf("email = %q, want lowercased", rc.UserEmail)
	}
	wantExpiry := rc.CreatedAt.Add(7 * 24 * time.Hour)
	if !rc.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expires at %v, want %v", rc.ExpiresAt, wantExpiry)
	}
}

func TestIssueProjectNotFound(t *testing.T) {
	_, engine := setup(t)

	_, err := engine.IssueReward(context.Background(), &entity.IssueParams{ProjectId: "missing"})
	if !errors.Is(err, entity.ErrProjectNotFound) {
		t.Fatalf("got %v, want ErrProjectNotFound", err)
	}
}

func TestIssueProjectNotConfigured(t *testing.T) {
	db, engine := setup(t)
	db.projects["empty"] = &entity.Project{Id: "empty", OwnerId: "owner-1"}

	_, err := engine.IssueReward(context.Background(), &entity.IssueParams{ProjectId: "empty"})
	if !errors.Is(err, entity.ErrProjectNotConfigured) {
		t.Fatalf("got %v, want ErrProjectNotConfigured", err)
	}
}

func TestIssueInvalidPrizeTable(t *testing.T) {
	db, engine := setup(t)
	db.projects["bad"] = &entity.Project{
		Id:      "bad",
		OwnerId: "owner-1",
		Prizes:  []entity.Prize{{Label: "A", Probability: 0}},
	}

	_, err := engine.IssueReward(context.Background(), &entity.IssueParams{ProjectId: "bad"})
	if !errors.Is(err, entity.ErrInvalidPrizeTable) {
		t.Fatalf("got %v, want ErrInvalidPrizeTable", err)
	}
}

func TestIssueStorageFailureSurfaces(t *testing.T) {
	db, engine := setup(t)
	db.failSave = errors.New("connection reset")

	_, err := engine.IssueReward(context.Background(), &entity.IssueParams{ProjectId: "p1"})
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("storage error not surfaced: %v", err)
	}
}

func TestRedeemScenario(t *testing.T) {
	_, engine := setup(t)
	issued := issue(t, engine, "p1", "a@b.com")

	redemption, err := engine.Redeem(context.Background(), issued.Code)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redemption.Prize != "Free Coffee" {
		t.Fatalf("prize = %q", redemption.Prize)
	}
	if redemption.CouponCode != "COFFEE10" {
		t.Fatalf("coupon = %q, want COFFEE10", redemption.CouponCode)
	}
	if redemption.Disclaimer != "one per visit" {
		t.Fatalf("disclaimer = %q", redemption.Disclaimer)
	}
	if redemption.Business == nil || redemption.Business.Name != "Cafe Milano" {
		t.Fatalf("business = %+v", redemption.Business)
	}
	if redemption.Business.Country != "Poland" {
		t.Fatalf("country = %q, want Poland", redemption.Business.Country)
	}

	// second attempt on the same code is terminal
	_, err = engine.Redeem(context.Background(), issued.Code)
	if !errors.Is(err, entity.ErrAlreadyRedeemed) {
		t.Fatalf("got %v, want ErrAlreadyRedeemed", err)
	}
}

func TestRedeemInvalidCode(t *testing.T) {
	_, engine := setup(t)

	_, err := engine.Redeem(context.Background(), "no-such-code")
	if !errors.Is(err, entity.ErrInvalidCode) {
		t.Fatalf("got %v, want ErrInvalidCode", err)
	}
}

func TestRedeemExpired(t *testing.T) {
	db, engine := setup(t)
	issued := issue(t, engine, "p1", "a@b.com")

	// shift the stored expiry into the past: 7-day code, 8 days gone
	db.mu.Lock()
	rc := db.codes[issued.Code]
	rc.CreatedAt = rc.CreatedAt.Add(-8 * 24 * time.Hour)
	rc.ExpiresAt = rc.ExpiresAt.Add(-8 * 24 * time.Hour)
	db.mu.Unlock()

	_, err := engine.Redeem(context.Background(), issued.Code)
	if !errors.Is(err, entity.ErrExpired) {
		t.Fatalf("got %v, want ErrExpired", err)
	}
	if db.codes[issued.Code].Redeemed {
		t.Fatal("expired attempt must not mutate the code")
	}
}

// Redemption facts are never retracted: a code that was redeemed and later
// passed its expiry still reports AlreadyRedeemed, not Expired.
func TestRedeemedBeatsExpired(t *testing.T) {
	db, engine := setup(t)
	issued := issue(t, engine, "p1", "a@b.com")

	if _, err := engine.Redeem(context.Background(), issued.Code); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	db.mu.Lock()
	db.codes[issued.Code].ExpiresAt = time.Now().Add(-time.Hour)
	db.mu.Unlock()

	_, err := engine.Redeem(context.Background(), issued.Code)
	if !errors.Is(err, entity.ErrAlreadyRedeemed) {
		t.Fatalf("got %v, want ErrAlreadyRedeemed", err)
	}
}

func TestRedeemAtMostOnceConcurrent(t *testing.T) {
	db, engine := setup(t)
	issued := issue(t, engine, "p1", "a@b.com")

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := engine.Redeem(context.Background(), issued.Code)
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var successes, already int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, entity.ErrAlreadyRedeemed):
			already++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
	if already != attempts-1 {
		t.Fatalf("already redeemed = %d, want %d", already, attempts-1)
	}

	rc := db.codes[issued.Code]
	if !rc.Redeemed || rc.RedeemedAt.IsZero() {
		t.Fatalf("winner did not persist redemption: %+v", rc)
	}
}

func TestIssueConcurrent(t *testing.T) {
	db, engine := setup(t)

	const workers = 16
	const perWorker = 200
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < perWorker; j++ {
				if _, err := engine.IssueReward(context.Background(), &entity.IssueParams{
					ProjectId: "p1",
					Email:     "a@b.com",
				}); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent issue: %v", err)
	}
	if len(db.codes) != workers*perWorker {
		t.Fatalf("persisted %d codes, want %d", len(db.codes), workers*perWorker)
	}
}

func TestRedeemCouponGating(t *testing.T) {
	db, engine := setup(t)
	db.projects["p1"].QrCouponEnabled = false

	issued := issue(t, engine, "p1", "a@b.com")
	redemption, err := engine.Redeem(context.Background(), issued.Code)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redemption.CouponCode != "" {
		t.Fatalf("coupon %q leaked with qr_coupon_enabled=false", redemption.CouponCode)
	}
}

// Coupon resolution reads the current prize table at redemption time; a
// label removed after issuance degrades to "no coupon", never an error.
func TestRedeemCouponLiveLookup(t *testing.T) {
	db, engine := setup(t)
	issued := issue(t, engine, "p1", "a@b.com")

	db.projects["p1"].Prizes = []entity.Prize{{Label: "Free Tea", Probability: 1.0, CouponCode: "TEA5"}}

	redemption, err := engine.Redeem(context.Background(), issued.Code)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redemption.Prize != "Free Coffee" {
		t.Fatalf("prize = %q, want the label stored at issuance", redemption.Prize)
	}
	if redemption.CouponCode != "" {
		t.Fatalf("coupon = %q, want none after table rotation", redemption.CouponCode)
	}
}

func TestRedeemBusinessProfileMissing(t *testing.T) {
	db, engine := setup(t)
	issued := issue(t, engine, "p1", "a@b.com")
	delete(db.profiles, "owner-1")

	_, err := engine.Redeem(context.Background(), issued.Code)
	if !errors.Is(err, entity.ErrBusinessProfileMissing) {
		t.Fatalf("got %v, want ErrBusinessProfileMissing", err)
	}
}

func TestMarkReviewedByCode(t *testing.T) {
	db, engine := setup(t)
	issued := issue(t, engine, "p1", "a@b.com")

	updated, err := engine.MarkReviewed(context.Background(), &entity.ReviewParams{
		ProjectId: "p1",
		Code:      issued.Code,
	})
	if err != nil {
		t.Fatalf("mark reviewed: %v", err)
	}
	if updated != 1 {
		t.Fatalf("updated = %d, want 1", updated)
	}
	first := db.codes[issued.Code].ReviewClickedAt
	if first.IsZero() {
		t.Fatal("review_clicked_at not set")
	}

	// second call is a no-op and must not move the timestamp
	updated, err = engine.MarkReviewed(context.Background(), &entity.ReviewParams{
		ProjectId: "p1",
		Code:      issued.Code,
	})
	if err != nil {
		t.Fatalf("mark reviewed again: %v", err)
	}
	if updated != 0 {
		t.Fatalf("second call updated = %d, want 0", updated)
	}
	if !db.codes[issued.Code].ReviewClickedAt.Equal(first) {
		t.Fatal("review_clicked_at overwritten")
	}
}

func TestMarkReviewedByEmailPicksNewest(t *testing.T) {
	db, engine := setup(t)
	older := issue(t, engine, "p1", "a@b.com")
	db.mu.Lock()
	db.codes[older.Code].CreatedAt = db.codes[older.Code].CreatedAt.Add(-time.Hour)
	db.mu.Unlock()
	newer := issue(t, engine, "p1", "a@b.com")

	updated, err := engine.MarkReviewed(context.Background(), &entity.ReviewParams{
		ProjectId: "p1",
		Email:     "A@B.com",
	})
	if err != nil {
		t.Fatalf("mark reviewed: %v", err)
	}
	if updated != 1 {
		t.Fatalf("updated = %d, want 1", updated)
	}
	if db.codes[newer.Code].ReviewClickedAt.IsZero() {
		t.Fatal("newest code not marked")
	}
	if !db.codes[older.Code].ReviewClickedAt.IsZero() {
		t.Fatal("older code marked instead of newest")
	}
}

func TestMarkReviewedNothingMatched(t *testing.T) {
	_, engine := setup(t)

	updated, err := engine.MarkReviewed(context.Background(), &entity.ReviewParams{
		ProjectId: "p1",
		Email:     "nobody@b.com",
	})
	if err != nil {
		t.Fatalf("mark reviewed: %v", err)
	}
	if updated != 0 {
		t.Fatalf("updated = %d, want 0", updated)
	}
}

// The tracker is a side channel: an unmarked code redeems just as well as a
// marked one.
func TestReviewNeverGatesRedemption(t *testing.T) {
	_, engine := setup(t)
	issued := issue(t, engine, "p1", "a@b.com")

	if _, err := engine.Redeem(context.Background(), issued.Code); err != nil {
		t.Fatalf("redeem without review click: %v", err)
	}
}

func TestRecordScan(t *testing.T) {
	db, engine := setup(t)

	err := engine.RecordScan(context.Background(), &entity.ScanParams{ProjectId: "p1", Rating: 5})
	if err != nil {
		t.Fatalf("record scan: %v", err)
	}
	if len(db.clicks) != 1 || db.clicks[0].Rating != 5 {
		t.Fatalf("clicks = %+v", db.clicks)
	}
}
