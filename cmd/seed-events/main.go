package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"kiddeo/internal/catalog"
	"kiddeo/internal/config"
	"kiddeo/internal/database"
	"kiddeo/internal/logger"
	"kiddeo/internal/models"
	"kiddeo/internal/repositories"
)

type sampleTier struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity *int    `json:"quantity,omitempty"`
}

type sampleEvent struct {
	Title       string
	Description string
	Category    string
	AgeFrom     *int
	AgeTo       *int
	AgeGroups   string
	InDays      int
	Hours       int
	Free        bool
	Tiers       []sampleTier
	Popular     bool
	Promoted    bool
	Priority    *int
}

func intPtr(v int) *int { return &v }

var samples = []sampleEvent{
	{
		Title:       "Щелкунчик для самых маленьких",
		Description: "Короткая версия балета с интерактивом в антракте.",
		Category:    "Спектакли",
		AgeFrom:     intPtr(3),
		AgeTo:       intPtr(7),
		AgeGroups:   "3-7",
		InDays:      3,
		Hours:       2,
		Tiers: []sampleTier{
			{ID: "1", Name: "Партер", Price: 1500, Quantity: intPtr(120)},
			{ID: "2", Name: "Балкон", Price: 800, Quantity: intPtr(60)},
		},
		Promoted: true,
		Priority: intPtr(1),
	},
	{
		Title:       "Лепим из глины",
		Description: "Мастер-класс по лепке, все материалы включены.",
		Category:    "Мастер-классы",
		AgeFrom:     intPtr(5),
		AgeTo:       intPtr(12),
		AgeGroups:   "5-12",
		InDays:      1,
		Hours:       1,
		Tiers:       []sampleTier{{ID: "1", Name: "Участник", Price: 450}},
		Popular:     true,
	},
	{
		Title:       "Оркестр играет мультфильмы",
		Description: "Музыка из любимых мультфильмов в исполнении симфонического оркестра.",
		Category:    "Концерты",
		AgeFrom:     intPtr(0),
		AgeGroups:   "0+",
		InDays:      10,
		Hours:       2,
		Tiers: []sampleTier{
			{ID: "1", Name: "Взрослый", Price: 2500},
			{ID: "2", Name: "Детский", Price: 1200},
		},
	},
	{
		Title:       "День открытых дверей в планетарии",
		Description: "Бесплатные экскурсии по залам и показ короткого фильма.",
		Category:    "Экскурсии",
		AgeFrom:     intPtr(6),
		AgeGroups:   "6+",
		InDays:      5,
		Hours:       4,
		Free:        true,
		Tiers:       []sampleTier{{ID: "1", Name: "Вход", Price: 0}},
	},
	{
		Title:       "Робототехника: первый робот",
		Description: "Собираем и программируем робота за одно занятие.",
		Category:    "Мастер-классы",
		AgeFrom:     intPtr(10),
		AgeTo:       intPtr(16),
		AgeGroups:   "10-16",
		InDays:      14,
		Hours:       3,
		Tiers:       []sampleTier{{ID: "1", Name: "Участник", Price: 3200}},
	},
}

var presets = []struct {
	Label string
	Query models.PresetQuery
}{
	{Label: "Малыши", Query: models.PresetQuery{AgeGroups: []string{"0-3"}}},
	{Label: "Бесплатно", Query: models.PresetQuery{IsPaid: boolPtr(false)}},
	{Label: "Недорого", Query: models.PresetQuery{PriceRange: &models.PresetPriceRange{Max: pricePtr(500)}}},
}

func boolPtr(v bool) *bool { return &v }

func pricePtr(v float64) *models.Price {
	p := models.Price(v)
	return &p
}

func main() {
	cityFlag := flag.String("city", "", "Only seed events for this city slug")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		log.Fatal("failed to load catalog", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Initialize database connection
	db, err := database.NewConnection(ctx, database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}

	categoryRepo := repositories.NewCategoryRepository(db.DB)
	presetRepo := repositories.NewPresetRepository(db.DB)
	eventRepo := repositories.NewEventRepository(db.DB)

	for _, meta := range cat.Categories() {
		c := &models.Category{Name: meta.Name, Slug: meta.Slug}
		if err := categoryRepo.Upsert(ctx, c); err != nil {
			log.Fatal("failed to seed category", "name", meta.Name, "error", err)
		}
	}
	log.Info("seeded categories", "count", len(cat.Categories()))

	for _, p := range presets {
		raw, err := json.Marshal(p.Query)
		if err != nil {
			log.Fatal("failed to encode preset", "label", p.Label, "error", err)
		}
		preset := &models.FilterPreset{
			Page:      models.DefaultPresetPage,
			Label:     p.Label,
			QueryJSON: string(raw),
			IsActive:  true,
		}
		if err := presetRepo.Upsert(ctx, preset); err != nil {
			log.Fatal("failed to seed preset", "label", p.Label, "error", err)
		}
	}
	log.Info("seeded presets", "count", len(presets))

	today := time.Now().UTC().Truncate(24 * time.Hour)
	created := 0
	for _, city := range cat.Cities() {
		if *cityFlag != "" && city.Slug != *cityFlag {
			continue
		}
		for _, s := range samples {
			event, err := buildEvent(s, city.Name, today)
			if err != nil {
				log.Fatal("failed to build event", "title", s.Title, "error", err)
			}
			if err := eventRepo.Create(ctx, event); err != nil {
				log.Fatal("failed to create event", "title", s.Title, "city", city.Name, "error", err)
			}
			created++
		}
	}
	log.Info("seeded events", "count", created)
}

func buildEvent(s sampleEvent, city string, today time.Time) (*models.Event, error) {
	raw, err := json.Marshal(s.Tiers)
	if err != nil {
		return nil, err
	}
	tickets := string(raw)
	paid := !s.Free
	start := today.AddDate(0, 0, s.InDays).Add(11 * time.Hour)

	return &models.Event{
		Title:       s.Title,
		Description: s.Description,
		City:        city,
		Category:    s.Category,
		Status:      models.StatusActive,
		StartDate:   start,
		EndDate:     start.Add(time.Duration(s.Hours) * time.Hour),
		AgeFrom:     s.AgeFrom,
		AgeTo:       s.AgeTo,
		AgeGroups:   s.AgeGroups,
		IsPaid:      &paid,
		Tickets:     &tickets,
		IsPopular:   s.Popular,
		IsPromoted:  s.Promoted,
		Priority:    s.Priority,
	}, nil
}
