// Package main fills a development database with a fake catalogue and an admin account.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-training/backend/config"
	"github.com/aura-training/backend/internal/auth"
	"github.com/aura-training/backend/internal/formations"
	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/internal/sessions"
	"github.com/aura-training/backend/pkg/database"
	"github.com/aura-training/backend/pkg/utils"
)

var (
	categories = []string{"Management", "Informatique", "Finance", "Qualité", "Ressources humaines"}
	cities     = []string{"Casablanca", "Rabat", "Marrakech", "Tanger", "Agadir", "En ligne"}
)

func main() {
	formationCount := flag.Int("formations", 8, "number of formations to create")
	sessionsPer := flag.Int("sessions", 3, "sessions per formation")
	adminEmail := flag.String("admin-email", "admin@aura.local", "admin account email")
	adminPassword := flag.String("admin-password", "admin123", "admin account password")
	seed := flag.Int64("seed", 0, "random seed (0 = random)")
	flag.Parse()

	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	ctx := context.Background()
	if err := database.Migrate(cfg.Database.DSN(), logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), 2, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	gofakeit.Seed(*seed)

	if err := seedAdmin(ctx, auth.NewRepository(pool), *adminEmail, *adminPassword); err != nil {
		logger.Fatal("seed admin", zap.Error(err))
	}

	formationRepo := formations.NewRepository(pool)
	sessionRepo := sessions.NewRepository(pool)
	now := time.Now()
	created := 0
	for i := 0; i < *formationCount; i++ {
		f := fakeFormation()
		if err := formationRepo.Create(ctx, f); err != nil {
			logger.Fatal("create formation", zap.Error(err))
		}
		for j := 0; j < *sessionsPer; j++ {
			s := fakeSession(f.ID, now)
			if err := sessionRepo.Create(ctx, s); err != nil {
				logger.Fatal("create session", zap.Error(err))
			}
			created++
		}
	}
	logger.Info("seed complete",
		zap.Int("formations", *formationCount),
		zap.Int("sessions", created),
		zap.String("admin", *adminEmail),
	)
}

func seedAdmin(ctx context.Context, repo *auth.Repository, email, password string) error {
	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	verified := time.Now()
	return repo.Create(ctx, &models.User{
		Email:         email,
		Name:          "Administrateur",
		PasswordHash:  hash,
		EmailVerified: &verified,
		Role:          models.RoleAdmin,
	})
}

func fakeFormation() *models.Formation {
	chapters := gofakeit.Number(3, 6)
	syllabus := make([]models.SyllabusItem, 0, chapters)
	for i := 1; i <= chapters; i++ {
		syllabus = append(syllabus, models.SyllabusItem{
			Title:   fmt.Sprintf("Module %d : %s", i, gofakeit.BuzzWord()),
			Content: gofakeit.Sentence(12),
		})
	}
	return &models.Formation{
		Title:       gofakeit.JobTitle() + " : " + gofakeit.BuzzWord(),
		Description: gofakeit.Paragraph(2, 4, 12, "\n\n"),
		Duration:    fmt.Sprintf("%d jours", gofakeit.Number(1, 5)),
		Category:    gofakeit.RandomString(categories),
		Active:      true,
		Syllabus:    syllabus,
	}
}

// fakeSession spreads sessions from two weeks ago to four months ahead, so a sweep has work to do.
func fakeSession(formationID uuid.UUID, now time.Time) *models.Session {
	start := gofakeit.DateRange(now.AddDate(0, 0, -14), now.AddDate(0, 4, 0)).Truncate(24 * time.Hour).Add(9 * time.Hour)
	mad := float64(gofakeit.Number(25, 150) * 100)
	return &models.Session{
		FormationID:     formationID,
		StartDate:       start,
		EndDate:         start.AddDate(0, 0, gofakeit.Number(0, 4)).Add(8 * time.Hour),
		Location:        gofakeit.RandomString(cities),
		PriceMAD:        mad,
		PriceEUR:        float64(int(mad / 10.8)),
		MaxParticipants: gofakeit.Number(8, 25),
		IsOpen:          true,
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
