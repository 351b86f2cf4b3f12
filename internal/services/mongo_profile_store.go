package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tourista/backend/internal/logging"
	"github.com/tourista/backend/internal/models"
)

type MongoProfileStore struct {
	client      *mongo.Client
	db          *mongo.Database
	profilesCol *mongo.Collection
}

func NewMongoProfileStore(ctx context.Context, mongoURI, dbName, collection string) (*MongoProfileStore, error) {
	if mongoURI == "" || dbName == "" || collection == "" {
		return nil, errors.New("mongo uri, database and collection are required")
	}

	// Nested documents decode as maps so opaque places and messages serialize back to plain JSON objects.
	clientOpts := options.Client().
		ApplyURI(mongoURI).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	db := client.Database(dbName)
	col := db.Collection(collection)

	// Best-effort index. Legacy collections may already hold duplicates.
	if _, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: models.FieldPhoneNumber, Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		logging.Warn().Err(err).Str("collection", collection).Msg("could not create unique phone_number index")
	}

	logging.Info().Str("db", dbName).Str("collection", collection).Msg("MongoDB connected")
	return &MongoProfileStore{
		client:      client,
		db:          db,
		profilesCol: col,
	}, nil
}

func (s *MongoProfileStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoProfileStore) FindByPhone(ctx context.Context, phone string) (*models.Profile, error) {
	var doc bson.M
	err := s.profilesCol.FindOne(ctx, bson.M{models.FieldPhoneNumber: phone}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return profileFromDocument(doc), nil
}

// SetField is a single upsert: $set touches only the requested field and
// $setOnInsert supplies the key when the document is new.
func (s *MongoProfileStore) SetField(ctx context.Context, phone, field string, value any) (bool, error) {
	filter := bson.M{models.FieldPhoneNumber: phone}
	update := bson.M{
		"$set":         bson.M{field: value},
		"$setOnInsert": bson.M{models.FieldPhoneNumber: phone},
	}

	res, err := s.profilesCol.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// Lost an insert race against another writer; the document now exists, so this is a plain update.
		res, err = s.profilesCol.UpdateOne(ctx, filter, bson.M{"$set": bson.M{field: value}})
	}
	if err != nil {
		return false, fmt.Errorf("set %s: %w", field, err)
	}
	return res.UpsertedCount > 0, nil
}

func (s *MongoProfileStore) PopFirstPlace(ctx context.Context, phone string) (any, error) {
	filter := bson.M{
		models.FieldPhoneNumber: phone,
		models.FieldPlaces + ".0": bson.M{"$exists": true},
	}
	update := bson.M{"$pop": bson.M{models.FieldPlaces: -1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before bson.M
	err := s.profilesCol.FindOneAndUpdate(ctx, filter, update, opts).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, err := s.FindByPhone(ctx, phone); err != nil {
			return nil, err
		}
		return nil, ErrEmptyPlaces
	}
	if err != nil {
		return nil, fmt.Errorf("pop place: %w", err)
	}

	prof := profileFromDocument(before)
	if len(prof.Places) == 0 {
		return nil, ErrEmptyPlaces
	}
	return prof.Places[0], nil
}

// RemovePlaceByTitle splices out the first matching element server side with a
// pipeline update, so the read of the index and the write happen atomically.
func (s *MongoProfileStore) RemovePlaceByTitle(ctx context.Context, phone, title string) (any, error) {
	filter := bson.M{
		models.FieldPhoneNumber: phone,
		models.FieldPlaces:      bson.M{"$elemMatch": bson.M{"title": title}},
	}

	titles := bson.M{"$map": bson.M{"input": "$places", "as": "p", "in": "$$p.title"}}
	firstMatch := bson.M{"$indexOfArray": bson.A{titles, bson.M{"$literal": title}}}
	kept := bson.M{"$filter": bson.M{
		"input": bson.M{"$range": bson.A{0, bson.M{"$size": "$places"}}},
		"as":    "j",
		"cond":  bson.M{"$ne": bson.A{"$$j", "$$i"}},
	}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: models.FieldPlaces, Value: bson.M{
			"$let": bson.M{
				"vars": bson.M{"i": firstMatch},
				"in": bson.M{"$map": bson.M{
					"input": kept,
					"as":    "j",
					"in":    bson.M{"$arrayElemAt": bson.A{"$places", "$$j"}},
				}},
			},
		}}}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before bson.M
	err := s.profilesCol.FindOneAndUpdate(ctx, filter, update, opts).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		prof, err := s.FindByPhone(ctx, phone)
		if err != nil {
			return nil, err
		}
		return nil, classifyPlacesMiss(prof)
	}
	if err != nil {
		return nil, fmt.Errorf("remove place: %w", err)
	}

	prof := profileFromDocument(before)
	idx := models.IndexOfPlace(prof.Places, title)
	if idx < 0 {
		return nil, ErrPlaceNotFound
	}
	return prof.Places[idx], nil
}

// profileFromDocument converts a raw document, ignoring fields of the wrong type.
func profileFromDocument(doc bson.M) *models.Profile {
	prof := &models.Profile{}
	prof.PhoneNumber, _ = doc[models.FieldPhoneNumber].(string)

	if v, ok := doc[models.FieldPlaces].(primitive.A); ok {
		prof.Places = normalizeList(v)
	}
	if v, ok := doc[models.FieldChatHistory].(primitive.A); ok {
		prof.ChatHistory = normalizeList(v)
	}
	if v, ok := doc[models.FieldLocation].(primitive.M); ok {
		prof.Location = locationFromDocument(v)
	}
	if v, ok := doc[models.FieldInterest].(string); ok {
		prof.Interest = &v
	}
	if v, ok := doc[models.FieldLanguage].(string); ok {
		prof.Language = &v
	}
	return prof
}

func normalizeList(in primitive.A) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = normalizeValue(v)
	}
	return out
}

// normalizeValue turns driver container types into plain maps and slices.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case primitive.M:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = normalizeValue(val)
		}
		return m
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case primitive.A:
		return normalizeList(t)
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}

// locationFromDocument returns nil unless lat and long are numbers and
// street_address is a string, so partial legacy locations read as not available
// instead of being padded with zero values.
func locationFromDocument(v primitive.M) *models.Location {
	lat, ok := toFloat(v["lat"])
	if !ok {
		return nil
	}
	long, ok := toFloat(v["long"])
	if !ok {
		return nil
	}
	street, ok := v["street_address"].(string)
	if !ok {
		return nil
	}
	return &models.Location{Lat: lat, Long: long, StreetAddress: street}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
