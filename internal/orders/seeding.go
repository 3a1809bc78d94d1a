package orders

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

const tableSeedApplication = "tabletap"

type bootstrapSeedDocument struct {
	Tables []tableSeed `json:"tables"`
}

type tableSeed struct {
	RestaurantID string `json:"restaurant_id"`
	Number       string `json:"number"`
	Status       string `json:"status"`
}

func loadTableSeeds(seedFS embed.FS) ([]tableSeed, error) {
	seedBytes, err := seedFS.ReadFile("seed.json")
	if err != nil {
		return nil, fmt.Errorf("read seed.json: %w", err)
	}

	if len(seedBytes) == 0 {
		return nil, errors.New("table seed file is empty")
	}

	var doc bootstrapSeedDocument
	if err := json.Unmarshal(seedBytes, &doc); err != nil {
		return nil, fmt.Errorf("decode table seed file: %w", err)
	}

	if len(doc.Tables) == 0 {
		return nil, errors.New("table seed file does not contain tables")
	}

	return doc.Tables, nil
}

// ApplyTableSeeds ensures all predefined tables exist.
func ApplyTableSeeds(ctx context.Context, repo TableRepo, seedFS embed.FS, logger apt.Logger) error {
	if repo == nil {
		return errors.New("table repository is required")
	}

	seedDocs, err := loadTableSeeds(seedFS)
	if err != nil {
		return err
	}

	seedDefs, err := buildTableSeedDefinitions(seedDocs, repo, logger)
	if err != nil {
		return err
	}
	if len(seedDefs) == 0 {
		logger.Info("No table seeds to apply")
		return nil
	}

	tracker, err := trackerFromRepo(repo)
	if err != nil {
		return err
	}

	logger.Info("Applying table seeds")
	if err := seed.Apply(ctx, tracker, seedDefs, tableSeedApplication); err != nil {
		return err
	}
	logger.Info("Table seeds applied successfully")
	return nil
}

func trackerFromRepo(repo TableRepo) (seed.Tracker, error) {
	provider, ok := repo.(mongoDatabaseProvider)
	if !ok {
		return nil, errors.New("table repository does not expose MongoDB access for seeding")
	}
	db := provider.GetDatabase()
	if db == nil {
		return nil, errors.New("table repository database is not initialized")
	}
	return seed.NewMongoTracker(db), nil
}

type mongoDatabaseProvider interface {
	GetDatabase() *mongo.Database
}

func buildTableSeedDefinitions(raw []tableSeed, repo TableRepo, logger apt.Logger) ([]seed.Seed, error) {
	var defs []seed.Seed

	for _, s := range raw {
		seedData := s
		if strings.TrimSpace(seedData.Number) == "" {
			logger.Info("Skipping seed table with empty number")
			continue
		}
		if _, err := uuid.Parse(seedData.RestaurantID); err != nil {
			logger.Info("Skipping seed table with invalid restaurant id", "restaurant_id", seedData.RestaurantID)
			continue
		}

		logger.Info("Including seed table", "number", seedData.Number, "status", seedData.Status)

		seedID := fmt.Sprintf("2026-01-12_table_%s", seedIdentifier(seedData.Number))
		description := fmt.Sprintf("Ensure table %s exists", seedData.Number)

		defs = append(defs, seed.Seed{
			ID:          seedID,
			Description: description,
			Run: func(ctx context.Context) error {
				return seedData.ensureTable(ctx, repo, logger)
			},
		})
	}

	return defs, nil
}

func seedIdentifier(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}

	replacer := strings.NewReplacer("-", "_", " ", "_", "/", "_", "\\", "_")
	value = replacer.Replace(value)

	var builder strings.Builder
	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			builder.WriteRune(r)
		}
	}

	result := builder.String()
	if result == "" {
		return "seed"
	}
	return result
}

func (s tableSeed) ensureTable(ctx context.Context, repo TableRepo, logger apt.Logger) error {
	number := strings.TrimSpace(s.Number)
	if number == "" {
		return errors.New("table number is required")
	}

	restaurantID, err := uuid.Parse(s.RestaurantID)
	if err != nil {
		return fmt.Errorf("parse restaurant id: %w", err)
	}

	existing, err := repo.GetByNumber(ctx, restaurantID, number)
	if err == nil && existing != nil {
		logger.Info("Seed table already exists", "number", number)
		return nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("check existing table: %w", err)
	}

	status := s.Status
	if status == "" {
		status = TableStatusFree
	}
	if !ValidTableStatus(status) {
		return fmt.Errorf("invalid table status %q", status)
	}

	table := NewTable()
	table.RestaurantID = restaurantID
	table.Number = number
	table.Status = status
	table.BeforeCreate()

	if err := repo.Create(ctx, table); err != nil {
		return fmt.Errorf("create seed table %s: %w", number, err)
	}

	logger.Info("Seed table created", "number", number)
	return nil
}
