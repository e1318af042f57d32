// Package seed generates and stores realistic demo leads.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sales_leads_backend/internal/leads/domain"
	"sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/platform/logger"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// DefaultCount matches the size of the demo dataset.
	DefaultCount = 532
	// BatchSize bounds the number of inserts sent per round trip.
	BatchSize = 500

	engagedChance   = 0.7
	contactedChance = 0.5
	maxUpdateLag    = 30 * 24 * time.Hour
)

const insertLeadSQL = `
INSERT INTO leads (name, email, company_name, stage, is_engaged, last_contacted_at, created_at, updated_at)
VALUES ($1, $2, $3, $4::lead_stage, $5, $6, $7, $8)`

// Lead is a generated row ready for insertion.
type Lead struct {
	Name            string
	Email           string
	CompanyName     string
	Stage           domain.Stage
	IsEngaged       bool
	LastContactedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Generator produces leads from a seeded faker so runs are reproducible.
type Generator struct {
	faker *gofakeit.Faker
	now   func() time.Time
}

func NewGenerator(seed int64, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{faker: gofakeit.New(seed), now: now}
}

// Generate returns n leads with unique emails. Created timestamps fall within
// the past year and updated timestamps up to 30 days later, never in the future.
func (g *Generator) Generate(n int) []Lead {
	now := g.now().UTC()
	stages := domain.Stages()
	leads := make([]Lead, 0, n)

	for i := 0; i < n; i++ {
		createdAt := g.faker.DateRange(now.AddDate(-1, 0, 0), now)
		updatedAt := createdAt.Add(time.Duration(g.faker.IntRange(0, int(maxUpdateLag/time.Second))) * time.Second)
		if updatedAt.After(now) {
			updatedAt = now
		}

		var lastContacted *time.Time
		if g.faker.Float64() < contactedChance {
			t := g.faker.DateRange(createdAt, updatedAt)
			lastContacted = &t
		}

		first, last := g.faker.FirstName(), g.faker.LastName()
		leads = append(leads, Lead{
			Name:            first + " " + last,
			Email:           strings.ToLower(fmt.Sprintf("%s.%s.%d@%s", first, last, i, g.faker.DomainName())),
			CompanyName:     g.faker.Company(),
			Stage:           stages[g.faker.IntRange(0, len(stages)-1)],
			IsEngaged:       g.faker.Float64() < engagedChance,
			LastContactedAt: lastContacted,
			CreatedAt:       createdAt,
			UpdatedAt:       updatedAt,
		})
	}

	return leads
}

// LeadCounter reports how many leads are stored.
type LeadCounter interface {
	Count(ctx context.Context) (int, error)
}

// Seeder writes generated leads to the database.
type Seeder struct {
	pool    *pgxpool.Pool
	counter LeadCounter
	log     *logger.Logger
}

func NewSeeder(pool *pgxpool.Pool, log *logger.Logger) *Seeder {
	return &Seeder{pool: pool, counter: repository.New(pool, nil, nil), log: log}
}

// Run inserts leads unless the table already has rows. With reset set the
// table is emptied first. It returns the number of inserted leads.
func (s *Seeder) Run(ctx context.Context, leads []Lead, reset bool) (int, error) {
	if reset {
		tag, err := s.pool.Exec(ctx, `DELETE FROM leads`)
		if err != nil {
			return 0, fmt.Errorf("clear leads: %w", err)
		}
		s.log.Info("cleared existing leads", "count", tag.RowsAffected())
	} else {
		existing, err := s.counter.Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("count leads: %w", err)
		}
		if existing > 0 {
			s.log.Info("leads already present; skipping seed", "count", existing)
			return 0, nil
		}
	}

	inserted := 0
	for _, chunk := range Chunks(leads, BatchSize) {
		if err := s.insertBatch(ctx, chunk); err != nil {
			return inserted, err
		}
		inserted += len(chunk)
		s.log.Info("inserted lead batch", "inserted", inserted, "total", len(leads))
	}
	return inserted, nil
}

func (s *Seeder) insertBatch(ctx context.Context, leads []Lead) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, l := range leads {
		batch.Queue(insertLeadSQL, l.Name, l.Email, l.CompanyName, string(l.Stage), l.IsEngaged, l.LastContactedAt, l.CreatedAt, l.UpdatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert leads: %w", err)
	}

	return tx.Commit(ctx)
}

// Chunks splits leads into consecutive slices of at most size elements.
func Chunks(leads []Lead, size int) [][]Lead {
	if size <= 0 {
		size = BatchSize
	}
	var out [][]Lead
	for start := 0; start < len(leads); start += size {
		end := min(start+size, len(leads))
		out = append(out, leads[start:end])
	}
	return out
}
