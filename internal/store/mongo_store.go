package store

import (
	"context"
	"errors"
	"time"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	adminsCollection     = "admins"
	usersCollection      = "users"
	ridersCollection     = "riders"
	foodsCollection      = "foods"
	ordersCollection     = "orders"
	deliveriesCollection = "deliveries"
)

// MongoStore implements Store on a MongoDB database
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore wraps an already connected client
func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(database)}
}

// EnsureIndexes creates the unique indexes the registration and order flows rely on
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		adminsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "tel", Value: 1}}, Options: unique},
		},
		ridersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "tel", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		foodsCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "orderBy", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		deliveriesCollection: {
			{Keys: bson.D{{Key: "order", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "rider", Value: 1}, {Key: "status", Value: 1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

func translateMongo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}

func (s *MongoStore) insert(ctx context.Context, collection string, doc interface{}) error {
	_, err := s.db.Collection(collection).InsertOne(ctx, doc)
	return translateMongo(err)
}

func (s *MongoStore) findOne(ctx context.Context, collection string, filter bson.M, out interface{}) error {
	return translateMongo(s.db.Collection(collection).FindOne(ctx, filter).Decode(out))
}

func stamp(id *string, createdAt, updatedAt *time.Time) {
	if *id == "" {
		*id = models.NewID()
	}
	now := time.Now().UTC()
	*createdAt = now
	*updatedAt = now
}

func (s *MongoStore) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	stamp(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt)
	return s.insert(ctx, adminsCollection, admin)
}

func (s *MongoStore) FindAdminByID(ctx context.Context, id string) (*models.Admin, error) {
	var admin models.Admin
	if err := s.findOne(ctx, adminsCollection, bson.M{"_id": id}, &admin); err != nil {
		return nil, err
	}
	return &admin, nil
}

func (s *MongoStore) FindAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	if err := s.findOne(ctx, adminsCollection, bson.M{"email": email}, &admin); err != nil {
		return nil, err
	}
	return &admin, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	stamp(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return s.insert(ctx, usersCollection, user)
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.findOne(ctx, usersCollection, bson.M{"_id": id}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) FindUserByEmailOrTel(ctx context.Context, email, tel string) (*models.User, error) {
	var user models.User
	filter := bson.M{"$or": bson.A{bson.M{"email": email}, bson.M{"tel": tel}}}
	if err := s.findOne(ctx, usersCollection, filter, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) IncrementUserOrders(ctx context.Context, id string) error {
	res, err := s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"orders": 1},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateRider(ctx context.Context, rider *models.Rider) error {
	stamp(&rider.ID, &rider.CreatedAt, &rider.UpdatedAt)
	return s.insert(ctx, ridersCollection, rider)
}

func (s *MongoStore) FindRiderByID(ctx context.Context, id string) (*models.Rider, error) {
	var rider models.Rider
	if err := s.findOne(ctx, ridersCollection, bson.M{"_id": id}, &rider); err != nil {
		return nil, err
	}
	return &rider, nil
}

func (s *MongoStore) FindRiderByEmailOrTel(ctx context.Context, email, tel string) (*models.Rider, error) {
	var rider models.Rider
	filter := bson.M{"$or": bson.A{bson.M{"email": email}, bson.M{"tel": tel}}}
	if err := s.findOne(ctx, ridersCollection, filter, &rider); err != nil {
		return nil, err
	}
	return &rider, nil
}

func (s *MongoStore) ListRiders(ctx context.Context, status models.RiderStatus, page Page) ([]models.Rider, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Limit))

	riders := []models.Rider{}
	if err := s.findAll(ctx, ridersCollection, filter, opts, &riders); err != nil {
		return nil, err
	}
	return riders, nil
}

func (s *MongoStore) UpdateRiderStatus(ctx context.Context, change RiderStatusChange) (*models.Rider, error) {
	set := bson.M{"status": change.To, "updatedAt": change.At}
	if change.ApprovedBy != "" {
		set["approvedBy"] = change.ApprovedBy
		set["approvedOn"] = change.At
	}

	var rider models.Rider
	err := s.db.Collection(ridersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": change.ID, "status": change.From},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rider)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.conflictOrMissing(ctx, ridersCollection, change.ID)
	}
	if err != nil {
		return nil, err
	}
	return &rider, nil
}

func (s *MongoStore) SwapRiderAvailability(ctx context.Context, id string, from []models.Availability, to models.Availability, countDelivery bool) error {
	update := bson.M{"$set": bson.M{"availability": to, "updatedAt": time.Now().UTC()}}
	if countDelivery {
		update["$inc"] = bson.M{"deliveries": 1}
	}
	res, err := s.db.Collection(ridersCollection).UpdateOne(ctx,
		bson.M{"_id": id, "availability": bson.M{"$in": from}},
		update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return s.conflictOrMissing(ctx, ridersCollection, id)
	}
	return nil
}

func (s *MongoStore) CreateFood(ctx context.Context, food *models.Food) error {
	stamp(&food.ID, &food.CreatedAt, &food.UpdatedAt)
	if food.Images == nil {
		food.Images = []string{}
	}
	return s.insert(ctx, foodsCollection, food)
}

func (s *MongoStore) FindFoodByID(ctx context.Context, id string) (*models.Food, error) {
	var food models.Food
	if err := s.findOne(ctx, foodsCollection, bson.M{"_id": id}, &food); err != nil {
		return nil, err
	}
	return &food, nil
}

func (s *MongoStore) FindFoodByName(ctx context.Context, name string) (*models.Food, error) {
	var food models.Food
	if err := s.findOne(ctx, foodsCollection, bson.M{"name": name}, &food); err != nil {
		return nil, err
	}
	return &food, nil
}

func (s *MongoStore) ListFoods(ctx context.Context, page Page) ([]models.Food, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Limit))

	foods := []models.Food{}
	if err := s.findAll(ctx, foodsCollection, bson.M{}, opts, &foods); err != nil {
		return nil, err
	}
	return foods, nil
}

func (s *MongoStore) UpdateFood(ctx context.Context, id string, update FoodUpdate) (*models.Food, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Category != nil {
		set["category"] = *update.Category
	}
	if update.PriceInCents != nil {
		set["priceInCents"] = *update.PriceInCents
	}
	if update.DiscountPercentage != nil {
		set["discountPercentage"] = *update.DiscountPercentage
	}
	if update.UpdatedBy != "" {
		set["lastUpdatedBy"] = update.UpdatedBy
	}
	doc := bson.M{"$set": set}
	if update.Restock != 0 {
		doc["$inc"] = bson.M{"stock": update.Restock}
	}
	if len(update.Images) > 0 {
		doc["$push"] = bson.M{"images": bson.M{"$each": update.Images}}
	}

	var food models.Food
	err := s.db.Collection(foodsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": id}, doc,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&food)
	if err != nil {
		return nil, translateMongo(err)
	}
	return &food, nil
}

func (s *MongoStore) DeleteFood(ctx context.Context, id string) error {
	res, err := s.db.Collection(foodsCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ReserveStock(ctx context.Context, id string, quantity int) (*models.Food, error) {
	var food models.Food
	err := s.db.Collection(foodsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": quantity}},
		bson.M{
			"$inc": bson.M{"stock": -quantity},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&food)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.conflictOrMissing(ctx, foodsCollection, id)
	}
	if err != nil {
		return nil, err
	}
	return &food, nil
}

func (s *MongoStore) ReleaseStock(ctx context.Context, id string, quantity int) error {
	res, err := s.db.Collection(foodsCollection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"stock": quantity},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateOrder(ctx context.Context, order *models.Order) error {
	stamp(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	return s.insert(ctx, ordersCollection, order)
}

func (s *MongoStore) DeleteOrder(ctx context.Context, id string) error {
	res, err := s.db.Collection(ordersCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) FindOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := s.findOne(ctx, ordersCollection, bson.M{"_id": id}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *MongoStore) ListOrdersByUser(ctx context.Context, userID string, limit int) ([]models.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	orders := []models.Order{}
	if err := s.findAll(ctx, ordersCollection, bson.M{"orderBy": userID}, opts, &orders); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.FoodID)
	}
	foods := []models.Food{}
	if len(ids) > 0 {
		if err := s.findAll(ctx, foodsCollection, bson.M{"_id": bson.M{"$in": ids}}, options.Find(), &foods); err != nil {
			return nil, err
		}
	}
	attachFoods(orders, foods)
	return orders, nil
}

func (s *MongoStore) CreateDelivery(ctx context.Context, delivery *models.Delivery) error {
	stamp(&delivery.ID, &delivery.CreatedAt, &delivery.UpdatedAt)
	return s.insert(ctx, deliveriesCollection, delivery)
}

func (s *MongoStore) FindDeliveryByID(ctx context.Context, id string) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := s.findOne(ctx, deliveriesCollection, bson.M{"_id": id}, &delivery); err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (s *MongoStore) ListDeliveries(ctx context.Context, filter DeliveryFilter) ([]models.Delivery, error) {
	query := bson.M{}
	if filter.RiderID != "" {
		query["rider"] = filter.RiderID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	deliveries := []models.Delivery{}
	if err := s.findAll(ctx, deliveriesCollection, query, opts, &deliveries); err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (s *MongoStore) TransitionDelivery(ctx context.Context, t DeliveryTransition) (*models.Delivery, error) {
	filter := bson.M{"_id": t.ID, "status": t.From}
	set := bson.M{"status": t.To, "updatedAt": time.Now().UTC()}
	if t.Assign {
		set["rider"] = t.RiderID
	} else {
		filter["rider"] = t.RiderID
	}

	var delivery models.Delivery
	err := s.db.Collection(deliveriesCollection).FindOneAndUpdate(ctx,
		filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&delivery)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.conflictOrMissing(ctx, deliveriesCollection, t.ID)
	}
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (s *MongoStore) CountDeliveries(ctx context.Context, riderID string, status models.DeliveryStatus) (int64, error) {
	return s.db.Collection(deliveriesCollection).CountDocuments(ctx, bson.M{"rider": riderID, "status": status})
}

// Close disconnects the client
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) findAll(ctx context.Context, collection string, filter bson.M, opts *options.FindOptions, out interface{}) error {
	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}

func (s *MongoStore) conflictOrMissing(ctx context.Context, collection, id string) error {
	count, err := s.db.Collection(collection).CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrConflict
}
