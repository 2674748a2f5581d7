// Seed tool for loading a demo rule catalog and farm dataset.
//
// Usage:
//
//	go run cmd/seed/main.go -db ./agrosight.db
//
// After seeding, trigger a run:
//
//	curl -X POST http://localhost:8080/runs
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/agrosight/agrosight/internal/domain"
	"github.com/agrosight/agrosight/internal/repository"
)

func main() {
	dbPath := flag.String("db", "./agrosight.db", "Path to the SQLite database")
	driver := flag.String("driver", "sqlite", "Database driver (sqlite or postgres)")
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host (postgres driver)")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port (postgres driver)")
	pgUser := flag.String("pg-user", "agrosight", "PostgreSQL user (postgres driver)")
	pgPassword := flag.String("pg-password", "", "PostgreSQL password (postgres driver)")
	pgDB := flag.String("pg-db", "agrosight", "PostgreSQL database (postgres driver)")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════╗")
	fmt.Println("║        AGROSIGHT SEED - Demo Data         ║")
	fmt.Println("╚═══════════════════════════════════════════╝")
	fmt.Println()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:           *driver,
		SQLitePath:       *dbPath,
		PostgresHost:     *pgHost,
		PostgresPort:     *pgPort,
		PostgresUser:     *pgUser,
		PostgresPassword: *pgPassword,
		PostgresDB:       *pgDB,
	})
	if err != nil {
		fmt.Printf("ERROR: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()

	if err := seedFarmData(ctx, repo); err != nil {
		fmt.Printf("ERROR: failed to seed farm data: %v\n", err)
		os.Exit(1)
	}
	if err := seedRules(ctx, repo); err != nil {
		fmt.Printf("ERROR: failed to seed rules: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("✓ Seeding complete")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  go run cmd/agrosight/main.go")
	fmt.Println("  curl -X POST http://localhost:8080/runs")
	fmt.Println("  curl http://localhost:8080/recommendations?status=pending")
}

func seedFarmData(ctx context.Context, repo domain.Repository) error {
	producers := []*domain.Producer{
		{ID: "prod-001", Name: "Awa Diallo", Region: "Kayes", Phone: "+223 70 11 22 33"},
		{ID: "prod-002", Name: "Moussa Traoré", Region: "Sikasso", Phone: "+223 76 44 55 66"},
		{ID: "prod-003", Name: "Fatoumata Keïta", Region: "Ségou", Phone: "+223 66 77 88 99"},
	}

	plots := []*domain.Plot{
		{ID: "plot-001", ProducerID: "prod-001", Name: "Champ Nord", CropName: "Maïs", AreaHa: 1.5},
		{ID: "plot-002", ProducerID: "prod-001", Name: "Champ Sud", CropName: "Sorgho", AreaHa: 2.0},
		{ID: "plot-003", ProducerID: "prod-002", Name: "Parcelle Rivière", CropName: "Riz", AreaHa: 0.8},
		{ID: "plot-004", ProducerID: "prod-003", Name: "Grand Champ", CropName: "Maïs", AreaHa: 3.2},
	}

	now := time.Now().UTC()
	observations := []*domain.Observation{
		// Weak emergence on the maize plots
		{ID: "obs-001", ProducerID: "prod-001", PlotID: "plot-001", PlotName: "Champ Nord", CropName: "Maïs", Metric: "emergence_rate", Value: 48, ObservedAt: now.AddDate(0, 0, -2)},
		{ID: "obs-002", ProducerID: "prod-003", PlotID: "plot-004", PlotName: "Grand Champ", CropName: "Maïs", Metric: "emergence_rate", Value: 85, ObservedAt: now.AddDate(0, 0, -3)},

		// Dry soil on the rice parcel
		{ID: "obs-003", ProducerID: "prod-002", PlotID: "plot-003", PlotName: "Parcelle Rivière", CropName: "Riz", Metric: "soil_moisture", Value: 14, ObservedAt: now.AddDate(0, 0, -1)},

		// Pest pressure rising on sorghum
		{ID: "obs-004", ProducerID: "prod-001", PlotID: "plot-002", PlotName: "Champ Sud", CropName: "Sorgho", Metric: "pest_pressure", Value: 78, ObservedAt: now.AddDate(0, 0, -1)},

		// Healthy reading, should never match anything
		{ID: "obs-005", ProducerID: "prod-003", PlotID: "plot-004", PlotName: "Grand Champ", CropName: "Maïs", Metric: "soil_moisture", Value: 42, ObservedAt: now},
	}

	for _, p := range producers {
		if err := repo.SaveProducer(ctx, p); err != nil {
			return err
		}
	}
	fmt.Printf("✓ Seeded %d producers\n", len(producers))

	for _, p := range plots {
		if err := repo.SavePlot(ctx, p); err != nil {
			return err
		}
	}
	fmt.Printf("✓ Seeded %d plots\n", len(plots))

	for _, o := range observations {
		if err := repo.SaveObservation(ctx, o); err != nil {
			return err
		}
	}
	fmt.Printf("✓ Seeded %d observations\n", len(observations))

	return nil
}

func seedRules(ctx context.Context, repo domain.Repository) error {
	rules := []*domain.Rule{
		{
			Code:        "R-EMERGENCE-LOW",
			Name:        "Taux de levée faible",
			Description: "Le taux de levée observé est inférieur à 60%.",
			Condition: `
				SELECT p.id AS producer_id, p.name AS producer_name,
				       o.crop_name, o.plot_name, o.metric, o.value
				FROM observations o
				JOIN producers p ON p.id = o.producer_id
				WHERE o.metric = 'emergence_rate' AND o.value < 60`,
			MessageTemplate: "Taux de levée de {value}% sur {plot_name} ({crop_name}). Envisagez un ressemis avec {producer_name}.",
			Severity:        domain.SeverityHigh,
			ActionType:      domain.ActionRecommendation,
			IsActive:        true,
		},
		{
			Code:        "R-SOIL-DRY",
			Name:        "Sol trop sec",
			Description: "Humidité du sol sous le seuil critique de 20%.",
			Condition: `
				SELECT p.id AS producer_id, p.name AS producer_name,
				       o.crop_name, o.plot_name, o.metric, o.value
				FROM observations o
				JOIN producers p ON p.id = o.producer_id
				WHERE o.metric = 'soil_moisture' AND o.value < 20`,
			MessageTemplate: "Humidité du sol à {value}% sur {plot_name}. Irrigation urgente recommandée pour {crop_name}.",
			Severity:        domain.SeverityCritical,
			ActionType:      domain.ActionAlert,
			IsActive:        true,
		},
		{
			Code:        "R-PEST-PRESSURE",
			Name:        "Pression parasitaire élevée",
			Description: "Indice de pression parasitaire au-dessus de 70.",
			Condition: `
				SELECT p.id AS producer_id, p.name AS producer_name,
				       o.crop_name, o.plot_name, o.metric, o.value
				FROM observations o
				JOIN producers p ON p.id = o.producer_id
				WHERE o.metric = 'pest_pressure' AND o.value > 70`,
			MessageTemplate: "Pression parasitaire de {value} sur {plot_name} ({crop_name}). Inspection de terrain conseillée.",
			Severity:        domain.SeverityHigh,
			ActionType:      domain.ActionWarning,
			IsActive:        true,
		},
		{
			Code:        "R-FERTILIZATION-DUE",
			Name:        "Rappel de fertilisation",
			Description: "Rappel saisonnier de fertilisation pour toutes les parcelles de maïs.",
			Condition: `
				SELECT p.id AS producer_id, p.name AS producer_name,
				       pl.crop_name, pl.name AS plot_name
				FROM plots pl
				JOIN producers p ON p.id = pl.producer_id
				WHERE pl.crop_name = 'Maïs'`,
			MessageTemplate: "Pensez à l'apport d'engrais NPK sur {plot_name} pour {crop_name}.",
			Severity:        domain.SeverityInfo,
			ActionType:      domain.ActionNotification,
			IsActive:        true,
		},
		{
			Code:            "R-INACTIVE-DEMO",
			Name:            "Règle désactivée (démo)",
			Description:     "Présente au catalogue mais inactive, jamais évaluée.",
			Condition:       `SELECT id AS producer_id FROM producers`,
			MessageTemplate: "Ne devrait jamais apparaître.",
			Severity:        domain.SeverityMedium,
			ActionType:      domain.ActionRecommendation,
			IsActive:        false,
		},
	}

	for _, r := range rules {
		if err := repo.SaveRule(ctx, r); err != nil {
			return err
		}
	}
	fmt.Printf("✓ Seeded %d rules\n", len(rules))

	return nil
}
