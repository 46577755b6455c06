// Package seed loads the initial ledger (shoppers, cards, pre-approved
// merchants) from a JSON file into the store at startup.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cassiomorais/banksim/internal/domain/money"
	"github.com/cassiomorais/banksim/internal/domain/shopper"
	"github.com/rs/zerolog"
)

// txManager is the slice of the application transaction port the loader needs.
type txManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type seedCard struct {
	Number      string `json:"number"`
	Name        string `json:"name"`
	ExpireMonth int    `json:"expire_month"`
	ExpireYear  int    `json:"expire_year"`
	CVV         int    `json:"cvv"`
}

type seedShopper struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Currency    string   `json:"currency"`
	Balance     float64  `json:"balance"`
	Card        seedCard `json:"card"`
	AutoApprove []string `json:"auto_approve"`
}

// Loader inserts seed records through the shopper repository.
type Loader struct {
	shoppers shopper.Repository
	tx       txManager
	logger   zerolog.Logger
}

func NewLoader(shoppers shopper.Repository, tx txManager, logger zerolog.Logger) *Loader {
	return &Loader{
		shoppers: shoppers,
		tx:       tx,
		logger:   logger.With().Str("component", "seed").Logger(),
	}
}

// Load reads the seed file and inserts every shopper with its card and
// auto-approve list in a single transaction. Returns the number of shoppers
// loaded. Balances in the file are decimal units and are converted to cents.
func (l *Loader) Load(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var entries []seedShopper
	if err := json.Unmarshal(raw, &entries); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}

	err = l.tx.WithTransaction(ctx, func(ctx context.Context) error {
		for i, entry := range entries {
			if err := l.loadOne(ctx, entry); err != nil {
				return fmt.Errorf("seed entry %d (%s): %w", i, entry.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	l.logger.Info().Int("shoppers", len(entries)).Str("file", path).Msg("seed loaded")
	return len(entries), nil
}

func (l *Loader) loadOne(ctx context.Context, entry seedShopper) error {
	sh := &shopper.Shopper{
		Name:         entry.Name,
		Description:  entry.Description,
		Currency:     entry.Currency,
		BalanceCents: money.ToCents(entry.Balance),
	}
	if err := l.shoppers.CreateShopper(ctx, sh); err != nil {
		return err
	}

	card := shopper.Card{
		Number:      entry.Card.Number,
		Name:        entry.Card.Name,
		ExpireMonth: entry.Card.ExpireMonth,
		ExpireYear:  entry.Card.ExpireYear,
		CVV:         entry.Card.CVV,
	}
	if _, err := l.shoppers.CreateCard(ctx, sh.ID, card); err != nil {
		return err
	}

	for _, merchant := range entry.AutoApprove {
		if err := l.shoppers.AddApprovedMerchant(ctx, sh.ID, merchant); err != nil {
			return err
		}
	}
	return nil
}
