package database

import (
	"context"
	"errors"
	"fmt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"qreward/entity"
	"qreward/internal/config"
	"time"
)

const (
	collectionUsers        = "users"
	collectionProjects     = "projects"
	collectionRewardCodes  = "reward_codes"
	collectionReviewClicks = "review_clicks"
	collectionProfiles     = "business_profiles"
)

type MongoDB struct {
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
	return client
}

func (m *MongoDB) connect(ctx context.Context) (*mongo.Client, error) {
	connection, err := mongo.Connect(ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(ctx context.Context, connection *mongo.Client) {
	_ = connection.Disconnect(ctx)
}

func (m *MongoDB) collection(connection *mongo.Client, name string) *mongo.Collection {
	return connection.Database(m.database).Collection(name)
}

func (m *MongoDB) GetUser(ctx context.Context, token string) (*entity.User, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	filter := bson.D{{Key: "token", Value: token}}
	var user entity.User
	err = m.collection(connection, collectionUsers).FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	return &user, nil
}

func (m *MongoDB) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	filter := bson.D{{Key: "id", Value: id}}
	var project entity.Project
	err = m.collection(connection, collectionProjects).FindOne(ctx, filter).Decode(&project)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	return &project, nil
}

func (m *MongoDB) SaveProject(ctx context.Context, project *entity.Project) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	filter := bson.D{{Key: "id", Value: project.Id}}
	update := bson.D{{Key: "$set", Value: project}}
	opts := options.Update().SetUpsert(true)
	_, err = m.collection(connection, collectionProjects).UpdateOne(ctx, filter, update, opts)
	return err
}

func (m *MongoDB) GetBusinessProfile(ctx context.Context, ownerId string) (*entity.BusinessProfile, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	filter := bson.D{{Key: "owner_id", Value: ownerId}}
	var profile entity.BusinessProfile
	err = m.collection(connection, collectionProfiles).FindOne(ctx, filter).Decode(&profile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	return &profile, nil
}

func (m *MongoDB) SaveBusinessProfile(ctx context.Context, profile *entity.BusinessProfile) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	filter := bson.D{{Key: "owner_id", Value: profile.OwnerId}}
	update := bson.D{{Key: "$set", Value: profile}}
	opts := options.Update().SetUpsert(true)
	_, err = m.collection(connection, collectionProfiles).UpdateOne(ctx, filter, update, opts)
	return err
}

func (m *MongoDB) SaveRewardCode(ctx context.Context, rc *entity.RewardCode) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	_, err = m.collection(connection, collectionRewardCodes).InsertOne(ctx, rc)
	return err
}

func (m *MongoDB) GetRewardCode(ctx context.Context, code string) (*entity.RewardCode, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	filter := bson.D{{Key: "code", Value: code}}
	var rc entity.RewardCode
	err = m.collection(connection, collectionRewardCodes).FindOne(ctx, filter).Decode(&rc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	return &rc, nil
}

func (m *MongoDB) LatestRewardCode(ctx context.Context, projectId, email string) (*entity.RewardCode, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	filter := bson.D{{Key: "project_id", Value: projectId}, {Key: "user_email", Value: email}}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var rc entity.RewardCode
	err = m.collection(connection, collectionRewardCodes).FindOne(ctx, filter, opts).Decode(&rc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	return &rc, nil
}

// MarkReviewClicked is conditioned on review_clicked_at being absent so a
// repeated call never overwrites the earlier, more accurate timestamp.
func (m *MongoDB) MarkReviewClicked(ctx context.Context, code string, at time.Time) (int64, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer m.disconnect(ctx, connection)

	filter := bson.D{{Key: "code", Value: code}, {Key: "review_clicked_at", Value: nil}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "review_clicked_at", Value: at}}}}
	result, err := m.collection(connection, collectionRewardCodes).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("mongodb update: %w", err)
	}
	return result.ModifiedCount, nil
}

// RedeemRewardCode is the at-most-once transition: the filter on
// redeemed=false makes the update a compare-and-swap, so of any number of
// concurrent attempts exactly one reports a modified row.
func (m *MongoDB) RedeemRewardCode(ctx context.Context, code string, at time.Time) (int64, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer m.disconnect(ctx, connection)

	filter := bson.D{{Key: "code", Value: code}, {Key: "redeemed", Value: false}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "redeemed", Value: true},
		{Key: "redeemed_at", Value: at},
	}}}
	result, err := m.collection(connection, collectionRewardCodes).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("mongodb update: %w", err)
	}
	return result.ModifiedCount, nil
}

func (m *MongoDB) SaveReviewClick(ctx context.Context, click *entity.ReviewClick) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	_, err = m.collection(connection, collectionReviewClicks).InsertOne(ctx, click)
	return err
}

func (m *MongoDB) SaveUser(ctx context.Context, user *entity.User) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	filter := bson.D{{Key: "token", Value: user.Token}}
	update := bson.D{{Key: "$set", Value: user}}
	opts := options.Update().SetUpsert(true)
	_, err = m.collection(connection, collectionUsers).UpdateOne(ctx, filter, update, opts)
	return err
}
