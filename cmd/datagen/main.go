package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/neuralbudget/neural-budget/internal/config"
	"github.com/neuralbudget/neural-budget/internal/domain"
	"github.com/neuralbudget/neural-budget/internal/logger"
	"github.com/neuralbudget/neural-budget/internal/store"
)

// datagen seeds a Firestore project with sample transactions so the
// chatbot has something to answer questions about.

type sampleExpense struct {
	name     string
	category string
	min, max int
}

var expenseCatalog = []sampleExpense{
	{"Big Bazaar", "Groceries", 200, 1500},
	{"Local market vegetables", "Groceries", 100, 600},
	{"Swiggy order", "Dining", 150, 800},
	{"Dominos", "Dining", 300, 900},
	{"Uber ride", "Transport", 80, 400},
	{"Petrol", "Transport", 500, 2000},
	{"Netflix", "Entertainment", 199, 649},
	{"Movie tickets", "Entertainment", 250, 800},
	{"Electricity bill", "Utilities", 800, 2500},
	{"Mobile recharge", "Utilities", 199, 599},
	{"Pharmacy", "Health", 100, 1200},
}

var incomeSources = []string{"Salary", "Freelance project", "Pocket Money", "Interest"}

var budgetCatalog = map[string]int{
	"groceries":     6000,
	"dining":        4000,
	"transport":     3000,
	"entertainment": 2000,
	"utilities":     3500,
}

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to YAML config file")
		userID     = flag.String("user", "", "User ID to seed data for (generated if empty)")
		months     = flag.Int("months", 3, "How many months of history to generate")
		perMonth   = flag.Int("per-month", 15, "Expenses per month")
		seed       = flag.Int64("seed", 0, "Random seed (0 uses current time)")
	)
	flag.Parse()

	log := logger.New(false)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	if *userID == "" {
		*userID = uuid.New().String()
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	txStore, err := store.NewFirestoreStore(ctx, cfg.Store.ProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Firestore store")
	}
	defer txStore.Close()

	log.Info().
		Str("user_id", *userID).
		Int("months", *months).
		Msg("Seeding sample data")

	now := time.Now()
	var expenses, incomes int

	for m := 0; m < *months; m++ {
		monthStart := now.AddDate(0, -m, 0)

		for i := 0; i < *perMonth; i++ {
			tmpl := expenseCatalog[rng.Intn(len(expenseCatalog))]
			amount := decimal.NewFromInt(int64(tmpl.min + rng.Intn(tmpl.max-tmpl.min+1)))
			day := monthStart.AddDate(0, 0, -rng.Intn(28))

			_, err := txStore.AddExpense(ctx, domain.Expense{
				UserID:   *userID,
				Name:     tmpl.name,
				Category: tmpl.category,
				Amount:   amount,
				Date:     civil.DateOf(day),
				Status:   domain.StatusCompleted,
			})
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to add expense")
			}
			expenses++
		}

		source := incomeSources[rng.Intn(len(incomeSources))]
		_, err := txStore.AddIncome(ctx, domain.Income{
			UserID: *userID,
			Source: source,
			Amount: decimal.NewFromInt(int64(20000 + rng.Intn(40000))),
			Date:   civil.DateOf(monthStart.AddDate(0, 0, -27)),
			Status: domain.StatusCompleted,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to add income")
		}
		incomes++
	}

	var budgets int
	for category, amount := range budgetCatalog {
		_, err := txStore.AddBudget(ctx, domain.Budget{
			UserID:   *userID,
			Category: category,
			Amount:   decimal.NewFromInt(int64(amount)),
			Period:   "monthly",
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to add budget")
		}
		budgets++
	}

	log.Info().
		Int("expenses", expenses).
		Int("incomes", incomes).
		Int("budgets", budgets).
		Msg("Seeding complete")

	fmt.Printf("Seeded user %s: %d expenses, %d incomes, %d budgets\n", *userID, expenses, incomes, budgets)
}
