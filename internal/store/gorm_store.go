package store

import (
	"context"
	"errors"
	"time"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"gorm.io/gorm"
)

// GormStore implements Store on top of a relational database through gorm
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GormStore. The handle should be opened with
// TranslateError enabled so unique violations surface as ErrDuplicate.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates or updates the tables used by the store
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.Admin{},
		&models.User{},
		&models.Rider{},
		&models.Food{},
		&models.Order{},
		&models.Delivery{},
	)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func (s *GormStore) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	if admin.ID == "" {
		admin.ID = models.NewID()
	}
	return translate(s.db.WithContext(ctx).Create(admin).Error)
}

func (s *GormStore) FindAdminByID(ctx context.Context, id string) (*models.Admin, error) {
	var admin models.Admin
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&admin).Error; err != nil {
		return nil, translate(err)
	}
	return &admin, nil
}

func (s *GormStore) FindAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&admin).Error; err != nil {
		return nil, translate(err)
	}
	return &admin, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = models.NewID()
	}
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

func (s *GormStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByEmailOrTel(ctx context.Context, email, tel string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ? OR tel = ?", email, tel).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) IncrementUserOrders(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"orders":     gorm.Expr("orders + ?", 1),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateRider(ctx context.Context, rider *models.Rider) error {
	if rider.ID == "" {
		rider.ID = models.NewID()
	}
	return translate(s.db.WithContext(ctx).Create(rider).Error)
}

func (s *GormStore) FindRiderByID(ctx context.Context, id string) (*models.Rider, error) {
	var rider models.Rider
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rider).Error; err != nil {
		return nil, translate(err)
	}
	return &rider, nil
}

func (s *GormStore) FindRiderByEmailOrTel(ctx context.Context, email, tel string) (*models.Rider, error) {
	var rider models.Rider
	if err := s.db.WithContext(ctx).Where("email = ? OR tel = ?", email, tel).First(&rider).Error; err != nil {
		return nil, translate(err)
	}
	return &rider, nil
}

func (s *GormStore) ListRiders(ctx context.Context, status models.RiderStatus, page Page) ([]models.Rider, error) {
	var riders []models.Rider
	query := s.db.WithContext(ctx).Order("created_at asc").Limit(page.Limit).Offset(page.Skip())
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&riders).Error; err != nil {
		return nil, err
	}
	return riders, nil
}

func (s *GormStore) UpdateRiderStatus(ctx context.Context, change RiderStatusChange) (*models.Rider, error) {
	updates := map[string]interface{}{
		"status":     change.To,
		"updated_at": change.At,
	}
	if change.ApprovedBy != "" {
		updates["approved_by"] = change.ApprovedBy
		updates["approved_on"] = change.At
	}

	var rider models.Rider
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Rider{}).
			Where("id = ? AND status = ?", change.ID, change.From).
			UpdateColumns(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflictOrMissing(tx, &models.Rider{}, change.ID)
		}
		return tx.Where("id = ?", change.ID).First(&rider).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &rider, nil
}

func (s *GormStore) SwapRiderAvailability(ctx context.Context, id string, from []models.Availability, to models.Availability, countDelivery bool) error {
	updates := map[string]interface{}{
		"availability": to,
		"updated_at":   time.Now(),
	}
	if countDelivery {
		updates["deliveries"] = gorm.Expr("deliveries + ?", 1)
	}

	return translate(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Rider{}).
			Where("id = ? AND availability IN ?", id, from).
			UpdateColumns(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflictOrMissing(tx, &models.Rider{}, id)
		}
		return nil
	}))
}

func (s *GormStore) CreateFood(ctx context.Context, food *models.Food) error {
	if food.ID == "" {
		food.ID = models.NewID()
	}
	return translate(s.db.WithContext(ctx).Create(food).Error)
}

func (s *GormStore) FindFoodByID(ctx context.Context, id string) (*models.Food, error) {
	var food models.Food
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&food).Error; err != nil {
		return nil, translate(err)
	}
	return &food, nil
}

func (s *GormStore) FindFoodByName(ctx context.Context, name string) (*models.Food, error) {
	var food models.Food
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&food).Error; err != nil {
		return nil, translate(err)
	}
	return &food, nil
}

func (s *GormStore) ListFoods(ctx context.Context, page Page) ([]models.Food, error) {
	var foods []models.Food
	err := s.db.WithContext(ctx).Order("created_at asc").
		Limit(page.Limit).Offset(page.Skip()).
		Find(&foods).Error
	if err != nil {
		return nil, err
	}
	return foods, nil
}

func (s *GormStore) UpdateFood(ctx context.Context, id string, update FoodUpdate) (*models.Food, error) {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if update.Name != nil {
		updates["name"] = *update.Name
	}
	if update.Category != nil {
		updates["category"] = *update.Category
	}
	if update.PriceInCents != nil {
		updates["price_in_cents"] = *update.PriceInCents
	}
	if update.DiscountPercentage != nil {
		updates["discount_percentage"] = *update.DiscountPercentage
	}
	if update.Restock != 0 {
		updates["stock"] = gorm.Expr("stock + ?", update.Restock)
	}
	if update.UpdatedBy != "" {
		updates["last_updated_by"] = update.UpdatedBy
	}

	var food models.Food
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&food).Error; err != nil {
			return err
		}
		if len(update.Images) > 0 {
			// serializer fields are written through the model, not raw columns
			food.Images = append(food.Images, update.Images...)
			if err := tx.Model(&food).Select("images").Updates(&models.Food{Images: food.Images}).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Food{}).Where("id = ?", id).UpdateColumns(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&food).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &food, nil
}

func (s *GormStore) DeleteFood(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Food{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ReserveStock(ctx context.Context, id string, quantity int) (*models.Food, error) {
	var food models.Food
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Food{}).
			Where("id = ? AND stock >= ?", id, quantity).
			UpdateColumns(map[string]interface{}{
				"stock":      gorm.Expr("stock - ?", quantity),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflictOrMissing(tx, &models.Food{}, id)
		}
		return tx.Where("id = ?", id).First(&food).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &food, nil
}

func (s *GormStore) ReleaseStock(ctx context.Context, id string, quantity int) error {
	res := s.db.WithContext(ctx).Model(&models.Food{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", quantity),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = models.NewID()
	}
	return translate(s.db.WithContext(ctx).Create(order).Error)
}

func (s *GormStore) DeleteOrder(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) FindOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (s *GormStore) ListOrdersByUser(ctx context.Context, userID string, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).Where("order_by = ?", userID).
		Order("created_at desc").Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.FoodID)
	}
	var foods []models.Food
	if len(ids) > 0 {
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&foods).Error; err != nil {
			return nil, err
		}
	}
	attachFoods(orders, foods)
	return orders, nil
}

func (s *GormStore) CreateDelivery(ctx context.Context, delivery *models.Delivery) error {
	if delivery.ID == "" {
		delivery.ID = models.NewID()
	}
	return translate(s.db.WithContext(ctx).Create(delivery).Error)
}

func (s *GormStore) FindDeliveryByID(ctx context.Context, id string) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&delivery).Error; err != nil {
		return nil, translate(err)
	}
	return &delivery, nil
}

func (s *GormStore) ListDeliveries(ctx context.Context, filter DeliveryFilter) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	query := s.db.WithContext(ctx).Order("created_at asc")
	if filter.RiderID != "" {
		query = query.Where("rider_id = ?", filter.RiderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (s *GormStore) TransitionDelivery(ctx context.Context, t DeliveryTransition) (*models.Delivery, error) {
	updates := map[string]interface{}{
		"status":     t.To,
		"updated_at": time.Now(),
	}
	if t.Assign {
		updates["rider_id"] = t.RiderID
	}

	var delivery models.Delivery
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&models.Delivery{}).Where("id = ? AND status = ?", t.ID, t.From)
		if !t.Assign {
			query = query.Where("rider_id = ?", t.RiderID)
		}
		res := query.UpdateColumns(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflictOrMissing(tx, &models.Delivery{}, t.ID)
		}
		return tx.Where("id = ?", t.ID).First(&delivery).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &delivery, nil
}

func (s *GormStore) CountDeliveries(ctx context.Context, riderID string, status models.DeliveryStatus) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Delivery{}).
		Where("rider_id = ? AND status = ?", riderID, status).
		Count(&count).Error
	return count, err
}

// Close releases the underlying connection pool
func (s *GormStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// conflictOrMissing tells apart a conditional write that lost its precondition from
// one addressed at a record that does not exist.
func conflictOrMissing(tx *gorm.DB, model interface{}, id string) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func attachFoods(orders []models.Order, foods []models.Food) {
	byID := make(map[string]models.Food, len(foods))
	for _, f := range foods {
		byID[f.ID] = f
	}
	for i := range orders {
		if f, ok := byID[orders[i].FoodID]; ok {
			public := f.Public()
			orders[i].Food = &public
		}
	}
}
