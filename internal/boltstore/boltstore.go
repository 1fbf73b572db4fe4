// Package boltstore is an embedded single-file implementation of the
// engine's storage interface, used for local runs and tests. Bolt executes
// one writer at a time, so wrapping the redemption check and write in a
// single db.Update transaction gives the same compare-and-swap guarantee
// the server-backed stores get from conditional updates.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"

	"qreward/entity"
)

const (
	bucketUsers        = "users"
	bucketProjects     = "projects"
	bucketProfiles     = "business_profiles"
	bucketRewardCodes  = "reward_codes"
	bucketReviewClicks = "review_clicks"
)

type BoltStore struct {
	db *bolt.DB
}

// New opens (or creates) the database file and ensures all buckets exist.
func New(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt open: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketUsers, bucketProjects, bucketProfiles, bucketRewardCodes, bucketReviewClicks} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt init: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) put(bucket, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
	})
}

func (s *BoltStore) get(bucket, key string, value interface{}) (bool, error) {
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, value)
	})
	return found, err
}

func (s *BoltStore) GetUser(_ context.Context, token string) (*entity.User, error) {
	var user entity.User
	found, err := s.get(bucketUsers, token, &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (s *BoltStore) SaveUser(_ context.Context, user *entity.User) error {
	return s.put(bucketUsers, user.Token, user)
}

func (s *BoltStore) GetProject(_ context.Context, id string) (*entity.Project, error) {
	var project entity.Project
	found, err := s.get(bucketProjects, id, &project)
	if err != nil || !found {
		return nil, err
	}
	return &project, nil
}

func (s *BoltStore) SaveProject(_ context.Context, project *entity.Project) error {
	return s.put(bucketProjects, project.Id, project)
}

func (s *BoltStore) GetBusinessProfile(_ context.Context, ownerId string) (*entity.BusinessProfile, error) {
	var profile entity.BusinessProfile
	found, err := s.get(bucketProfiles, ownerId, &profile)
	if err != nil || !found {
		return nil, err
	}
	return &profile, nil
}

func (s *BoltStore) SaveBusinessProfile(_ context.Context, profile *entity.BusinessProfile) error {
	return s.put(bucketProfiles, profile.OwnerId, profile)
}

func (s *BoltStore) SaveRewardCode(_ context.Context, rc *entity.RewardCode) error {
	return s.put(bucketRewardCodes, rc.Code, rc)
}

func (s *BoltStore) GetRewardCode(_ context.Context, code string) (*entity.RewardCode, error) {
	var rc entity.RewardCode
	found, err := s.get(bucketRewardCodes, code, &rc)
	if err != nil || !found {
		return nil, err
	}
	return &rc, nil
}

func (s *BoltStore) LatestRewardCode(_ context.Context, projectId, email string) (*entity.RewardCode, error) {
	var latest *entity.RewardCode
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketRewardCodes)).ForEach(func(_, v []byte) error {
			var rc entity.RewardCode
			if err := json.Unmarshal(v, &rc); err != nil {
				return err
			}
			if rc.ProjectId != projectId || rc.UserEmail != email {
				return nil
			}
			if latest == nil || rc.CreatedAt.After(latest.CreatedAt) {
				c := rc
				latest = &c
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return latest, nil
}

func (s *BoltStore) MarkReviewClicked(_ context.Context, code string, at time.Time) (int64, error) {
	var updated int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketRewardCodes))
		data := bucket.Get([]byte(code))
		if data == nil {
			return nil
		}
		var rc entity.RewardCode
		if err := json.Unmarshal(data, &rc); err != nil {
			return err
		}
		if !rc.ReviewClickedAt.IsZero() {
			return nil
		}
		rc.ReviewClickedAt = at
		out, err := json.Marshal(&rc)
		if err != nil {
			return err
		}
		updated = 1
		return bucket.Put([]byte(code), out)
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func (s *BoltStore) RedeemRewardCode(_ context.Context, code string, at time.Time) (int64, error) {
	var updated int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketRewardCodes))
		data := bucket.Get([]byte(code))
		if data == nil {
			return nil
		}
		var rc entity.RewardCode
		if err := json.Unmarshal(data, &rc); err != nil {
			return err
		}
		if rc.Redeemed {
			return nil
		}
		rc.Redeemed = true
		rc.RedeemedAt = at
		out, err := json.Marshal(&rc)
		if err != nil {
			return err
		}
		updated = 1
		return bucket.Put([]byte(code), out)
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func (s *BoltStore) SaveReviewClick(_ context.Context, click *entity.ReviewClick) error {
	data, err := json.Marshal(click)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketReviewClicks))
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%020d", seq)
		return bucket.Put([]byte(key), data)
	})
}
