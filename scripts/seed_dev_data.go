package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/auth"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/config"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/database"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/lifecycle"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/services"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/store"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Seeds a development admin, an approved rider and a few foods into the store
// selected by the usual environment variables.
func main() {
	password := flag.String("password", "dev-password-123", "Password for the seeded accounts")
	flag.Parse()

	_ = godotenv.Load()
	conf, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	st, err := openStore(ctx, conf.Database)
	if err != nil {
		log.Fatal("Failed to open store: ", err)
	}
	defer st.Close(context.Background())

	tokens := auth.NewTokenManager(conf.JWTSecret, time.Duration(conf.JWTExpirationHours)*time.Hour)
	accounts := services.NewAccountService(st, tokens, log.StandardLogger())
	catalog := services.NewCatalogService(st, log.StandardLogger())
	engine := lifecycle.NewEngine(st, nil, log.StandardLogger())

	admin, err := accounts.SignupAdmin(ctx, services.SignupInput{
		Email: "admin@dev.local", Firstname: "Dev", Lastname: "Admin", Password: *password,
	})
	switch {
	case errors.Is(err, models.ErrEmailInUse):
		fmt.Println("Development data already seeded")
		return
	case err != nil:
		log.Fatal("Failed to create admin: ", err)
	}
	adminPrincipal := auth.Principal{ID: admin.ID, Email: admin.Email, Role: auth.RoleAdmin}

	rider, err := accounts.SignupRider(ctx, services.SignupInput{
		Email: "rider@dev.local", Firstname: "dev", Lastname: "rider", Tel: "5550100",
		Address: "1 Depot Road", Password: *password,
	})
	if err != nil {
		log.Fatal("Failed to create rider: ", err)
	}
	if _, err := engine.ApproveRider(ctx, adminPrincipal, rider.ID); err != nil {
		log.Fatal("Failed to approve rider: ", err)
	}

	foods := []services.CreateFoodInput{
		{Name: "Margherita", Category: "pizza", Stock: 25, PriceInCents: 1099},
		{Name: "Pepperoni", Category: "pizza", Stock: 25, PriceInCents: 1299},
		{Name: "Caesar Salad", Category: "salad", Stock: 10, PriceInCents: 899, DiscountPercentage: 10},
	}
	for _, food := range foods {
		food.Images = []string{conf.UploadDir + "/food/placeholder.png"}
		if _, err := catalog.CreateFood(ctx, adminPrincipal, food); err != nil {
			log.Fatal("Failed to create food: ", err)
		}
	}

	fmt.Println("✓ Development data seeded")
	fmt.Printf("Admin: admin@dev.local / %s\n", *password)
	fmt.Printf("Rider: rider@dev.local / %s (approved)\n", *password)
	fmt.Println("\nLog in with:")
	fmt.Printf("curl -X POST http://%s%s/login \\\n", conf.Addr(), conf.AdminAPIPrefix)
	fmt.Printf("  -H 'Content-Type: application/json' \\\n")
	fmt.Printf("  -d '{\"email\":\"admin@dev.local\",\"password\":\"%s\"}'\n", *password)
}

func openStore(ctx context.Context, cfg database.DatabaseConfig) (store.Store, error) {
	if cfg.NormalizedDriver() == database.DriverMongo {
		client, err := database.InitMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s := store.NewMongoStore(client, cfg.MongoDatabase)
		return s, s.EnsureIndexes(ctx)
	}
	db, err := database.InitDatabase(cfg)
	if err != nil {
		return nil, err
	}
	s := store.NewGormStore(db)
	return s, s.AutoMigrate()
}
