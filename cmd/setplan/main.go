// Command setplan changes a user's billing plan. It is the entry point the
// billing collaborator uses; the API never changes plans on its own.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adrecipro/adquiz/internal/core/domain"
	"github.com/adrecipro/adquiz/internal/core/service"
	mongodb "github.com/adrecipro/adquiz/internal/infrastructure/db/mongo"
	"github.com/adrecipro/adquiz/internal/pkg/config"
	"github.com/adrecipro/adquiz/pkg/logger"
)

func main() {
	var (
		idFlag   string
		planFlag string
	)
	flag.StringVar(&idFlag, "id", "", "user ID to update")
	flag.StringVar(&planFlag, "plan", "", "plan to assign (free, standard, premium)")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	plan := domain.Plan(strings.TrimSpace(strings.ToLower(planFlag)))
	if userID == "" {
		exitWithError(errors.New("-id is required"))
	}
	if !plan.Valid() {
		exitWithError(fmt.Errorf("unsupported plan %q", plan))
	}

	cfg := config.Load()
	if cfg.StoreDriver != config.StoreMongo {
		exitWithError(fmt.Errorf("setplan needs STORE_DRIVER=%s, got %q", config.StoreMongo, cfg.StoreDriver))
	}
	logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Service: "adquiz-setplan"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	ledger := service.NewLedgerService(mongodb.NewUserRepository(db), nil, logger.Component("ledger"))
	if err := ledger.SetPlan(ctx, userID, plan); err != nil {
		exitWithError(fmt.Errorf("failed to update user plan: %w", err))
	}

	u, err := ledger.GetUser(ctx, userID)
	if err != nil {
		exitWithError(fmt.Errorf("failed to reload user: %w", err))
	}
	fmt.Printf("User %s (%s) updated to plan %s\n", u.ID, u.Email, u.Plan)
	fmt.Printf("ad_horizon=%s description_limit=%d\n", u.Plan.Horizon(), u.Plan.DescriptionLimit())
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
