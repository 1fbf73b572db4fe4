// Package sqlstore is the MySQL implementation of the engine's storage
// interface. The redemption transition is expressed directly as
// UPDATE ... WHERE code=? AND redeemed=0, so at-most-once holds across any
// number of stateless engine instances without application-level locking.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"qreward/entity"
	"qreward/internal/config"
	"time"
)

type SqlStore struct {
	db *sql.DB
}

func New(conf *config.Config) (*SqlStore, error) {
	if !conf.MySql.Enabled {
		return nil, fmt.Errorf("mysql store is disabled in configuration")
	}
	connectionURI := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		conf.MySql.UserName, conf.MySql.Password, conf.MySql.HostName, conf.MySql.Port, conf.MySql.Database)
	db, err := sql.Open("mysql", connectionURI)
	if err != nil {
		return nil, fmt.Errorf("sql connect: %w", err)
	}

	// try to ping three times with a 30-second interval; wait for a database to start
	for i := 0; i < 3; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		if i == 2 {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		time.Sleep(30 * time.Second)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	store := &SqlStore{db: db}
	if err = store.createTables(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SqlStore) Close() {
	_ = s.db.Close()
}

func (s *SqlStore) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			token VARCHAR(64) NOT NULL PRIMARY KEY,
			username VARCHAR(64) NOT NULL,
			name VARCHAR(128) NOT NULL DEFAULT '',
			email VARCHAR(128) NOT NULL DEFAULT '',
			registered_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS projects (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			owner_id VARCHAR(64) NOT NULL,
			prizes JSON NOT NULL,
			qr_coupon_enabled TINYINT(1) NOT NULL DEFAULT 0,
			disclaimer TEXT,
			language VARCHAR(8) NOT NULL DEFAULT '',
			expiry_days INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS business_profiles (
			owner_id VARCHAR(64) NOT NULL PRIMARY KEY,
			name VARCHAR(128) NOT NULL,
			logo_url VARCHAR(255) NOT NULL DEFAULT '',
			address VARCHAR(255) NOT NULL DEFAULT '',
			phone VARCHAR(64) NOT NULL DEFAULT '',
			country_code VARCHAR(8) NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS reward_codes (
			code VARCHAR(64) NOT NULL PRIMARY KEY,
			project_id VARCHAR(64) NOT NULL,
			prize VARCHAR(128) NOT NULL,
			user_email VARCHAR(128) NOT NULL DEFAULT '',
			marketing_opt_in TINYINT(1) NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			review_clicked_at DATETIME NULL,
			redeemed TINYINT(1) NOT NULL DEFAULT 0,
			redeemed_at DATETIME NULL,
			INDEX idx_project_email (project_id, user_email, created_at)
		)`,
		`CREATE TABLE IF NOT EXISTS review_clicks (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			project_id VARCHAR(64) NOT NULL,
			rating INT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			INDEX idx_project (project_id, created_at)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

func (s *SqlStore) GetUser(ctx context.Context, token string) (*entity.User, error) {
	var user entity.User
	err := s.db.QueryRowContext(ctx,
		`SELECT token, username, name, email, registered_at FROM users WHERE token = ?`, token).
		Scan(&user.Token, &user.Username, &user.Name, &user.Email, &user.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &user, nil
}

func (s *SqlStore) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	var project entity.Project
	var prizes []byte
	var disclaimer sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, prizes, qr_coupon_enabled, disclaimer, language, expiry_days
		 FROM projects WHERE id = ?`, id).
		Scan(&project.Id, &project.OwnerId, &prizes, &project.QrCouponEnabled,
			&disclaimer, &project.Language, &project.ExpiryDays)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select project: %w", err)
	}
	project.Disclaimer = disclaimer.String
	if err = json.Unmarshal(prizes, &project.Prizes); err != nil {
		return nil, fmt.Errorf("decode prizes: %w", err)
	}
	return &project, nil
}

func (s *SqlStore) SaveProject(ctx context.Context, project *entity.Project) error {
	prizes, err := json.Marshal(project.Prizes)
	if err != nil {
		return fmt.Errorf("encode prizes: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (id, owner_id, prizes, qr_coupon_enabled, disclaimer, language, expiry_days)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE owner_id = VALUES(owner_id), prizes = VALUES(prizes),
			qr_coupon_enabled = VALUES(qr_coupon_enabled), disclaimer = VALUES(disclaimer),
			language = VALUES(language), expiry_days = VALUES(expiry_days)`,
		project.Id, project.OwnerId, prizes, project.QrCouponEnabled,
		project.Disclaimer, project.Language, project.ExpiryDays)
	return err
}

func (s *SqlStore) GetBusinessProfile(ctx context.Context, ownerId string) (*entity.BusinessProfile, error) {
	var profile entity.BusinessProfile
	err := s.db.QueryRowContext(ctx,
		`SELECT owner_id, name, logo_url, address, phone, country_code
		 FROM business_profiles WHERE owner_id = ?`, ownerId).
		Scan(&profile.OwnerId, &profile.Name, &profile.LogoUrl,
			&profile.Address, &profile.Phone, &profile.CountryCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select business profile: %w", err)
	}
	return &profile, nil
}

func (s *SqlStore) SaveBusinessProfile(ctx context.Context, profile *entity.BusinessProfile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO business_profiles (owner_id, name, logo_url, address, phone, country_code)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE name = VALUES(name), logo_url = VALUES(logo_url),
			address = VALUES(address), phone = VALUES(phone), country_code = VALUES(country_code)`,
		profile.OwnerId, profile.Name, profile.LogoUrl, profile.Address, profile.Phone, profile.CountryCode)
	return err
}

func (s *SqlStore) SaveRewardCode(ctx context.Context, rc *entity.RewardCode) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reward_codes
			(code, project_id, prize, user_email, marketing_opt_in, created_at, expires_at, redeemed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		rc.Code, rc.ProjectId, rc.Prize, rc.UserEmail, rc.MarketingOptIn, rc.CreatedAt, rc.ExpiresAt)
	return err
}

func (s *SqlStore) GetRewardCode(ctx context.Context, code string) (*entity.RewardCode, error) {
	// BINARY comparison keeps the lookup case-sensitive: codes are matched
	// verbatim even on case-insensitive collations
	row := s.db.QueryRowContext(ctx,
		`SELECT code, project_id, prize, user_email, marketing_opt_in,
			created_at, expires_at, review_clicked_at, redeemed, redeemed_at
		 FROM reward_codes WHERE BINARY code = ?`, code)
	return scanRewardCode(row)
}

func (s *SqlStore) LatestRewardCode(ctx context.Context, projectId, email string) (*entity.RewardCode, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT code, project_id, prize, user_email, marketing_opt_in,
			created_at, expires_at, review_clicked_at, redeemed, redeemed_at
		 FROM reward_codes WHERE project_id = ? AND user_email = ?
		 ORDER BY created_at DESC LIMIT 1`, projectId, email)
	return scanRewardCode(row)
}

func scanRewardCode(row *sql.Row) (*entity.RewardCode, error) {
	var rc entity.RewardCode
	var reviewClickedAt, redeemedAt sql.NullTime
	err := row.Scan(&rc.Code, &rc.ProjectId, &rc.Prize, &rc.UserEmail, &rc.MarketingOptIn,
		&rc.CreatedAt, &rc.ExpiresAt, &reviewClickedAt, &rc.Redeemed, &redeemedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select reward code: %w", err)
	}
	if reviewClickedAt.Valid {
		rc.ReviewClickedAt = reviewClickedAt.Time
	}
	if redeemedAt.Valid {
		rc.RedeemedAt = redeemedAt.Time
	}
	return &rc, nil
}

func (s *SqlStore) MarkReviewClicked(ctx context.Context, code string, at time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE reward_codes SET review_clicked_at = ?
		 WHERE BINARY code = ? AND review_clicked_at IS NULL`, at, code)
	if err != nil {
		return 0, fmt.Errorf("update reward code: %w", err)
	}
	return result.RowsAffected()
}

func (s *SqlStore) RedeemRewardCode(ctx context.Context, code string, at time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE reward_codes SET redeemed = 1, redeemed_at = ?
		 WHERE BINARY code = ? AND redeemed = 0`, at, code)
	if err != nil {
		return 0, fmt.Errorf("update reward code: %w", err)
	}
	return result.RowsAffected()
}

func (s *SqlStore) SaveReviewClick(ctx context.Context, click *entity.ReviewClick) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO review_clicks (project_id, rating, created_at) VALUES (?, ?, ?)`,
		click.ProjectId, click.Rating, click.CreatedAt)
	return err
}

func (s *SqlStore) SaveUser(ctx context.Context, user *entity.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (token, username, name, email, registered_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE username = VALUES(username), name = VALUES(name), email = VALUES(email)`,
		user.Token, user.Username, user.Name, user.Email, user.RegisteredAt)
	return err
}
