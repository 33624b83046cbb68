package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/dishcovery/backend/internal/config"
	"github.com/dishcovery/backend/internal/database"
	"github.com/dishcovery/backend/internal/models"
	"github.com/dishcovery/backend/internal/query"
	"github.com/dishcovery/backend/internal/repository"
)

// DishListPage is one cuisine list page to scrape for recipe stubs.
type DishListPage struct {
	Country string
	URL     string
}

var dishListPages = []DishListPage{
	{Country: "India", URL: "https://en.wikipedia.org/wiki/List_of_Indian_dishes"},
	{Country: "Thailand", URL: "https://en.wikipedia.org/wiki/List_of_Thai_dishes"},
	{Country: "Mexico", URL: "https://en.wikipedia.org/wiki/List_of_Mexican_dishes"},
	{Country: "Italy", URL: "https://en.wikipedia.org/wiki/List_of_Italian_dishes"},
	{Country: "Japan", URL: "https://en.wikipedia.org/wiki/List_of_Japanese_dishes"},
	{Country: "France", URL: "https://en.wikipedia.org/wiki/List_of_French_dishes"},
	{Country: "China", URL: "https://en.wikipedia.org/wiki/List_of_Chinese_dishes"},
	{Country: "Vietnam", URL: "https://en.wikipedia.org/wiki/List_of_Vietnamese_dishes"},
}

var (
	dryRun     = flag.Bool("dry-run", false, "Don't write to the database, just print what would be created")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	pageLimit  = flag.Int("limit", 0, "Limit number of list pages to process (0 = all)")
	concurrent = flag.Int("concurrent", 2, "Number of concurrent requests")
	delay      = flag.Duration("delay", 2*time.Second, "Delay between requests")
)

// DishSeeder scrapes cuisine list pages and creates community recipe stubs.
type DishSeeder struct {
	collector *colly.Collector
	recipes   repository.RecipeRepository
	logger    *logrus.Logger
	processed map[string]bool
	created   int
	skipped   int
	errs      []error
}

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	var recipes repository.RecipeRepository
	if *dryRun {
		recipes = repository.NewMemoryRecipeRepository()
	} else {
		dbManager, err := database.NewManager(&database.Config{
			DatabaseURL: cfg.Database.URL,
			RedisURL:    cfg.Redis.URL,
			LogLevel:    os.Getenv("LOG_LEVEL"),
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer dbManager.Close()

		if err := dbManager.Migrate(); err != nil {
			logger.WithError(err).Fatal("Migrations failed")
		}
		recipes = repository.NewRepositoryManager(dbManager.DB).Recipe
	}

	seeder := NewDishSeeder(recipes, logger)

	pages := dishListPages
	if *pageLimit > 0 && *pageLimit < len(pages) {
		pages = pages[:*pageLimit]
	}

	start := time.Now()
	seeder.SeedAll(pages)

	logger.WithFields(logrus.Fields{
		"created": seeder.created,
		"skipped": seeder.skipped,
		"errors":  len(seeder.errs),
		"took":    time.Since(start).String(),
		"dry_run": *dryRun,
	}).Info("Seeding finished")

	if len(seeder.errs) > 0 {
		for _, err := range seeder.errs {
			logger.WithError(err).Warn("Seeding error")
		}
		os.Exit(1)
	}
}

func NewDishSeeder(recipes repository.RecipeRepository, logger *logrus.Logger) *DishSeeder {
	collector := colly.NewCollector(
		colly.UserAgent("dishcovery-seeder/1.0"),
		colly.Async(true),
	)
	collector.Limit(&colly.LimitRule{
		DomainGlob:  "*wikipedia.org*",
		Parallelism: *concurrent,
		Delay:       *delay,
	})

	return &DishSeeder{
		collector: collector,
		recipes:   recipes,
		logger:    logger,
		processed: make(map[string]bool),
	}
}

// SeedAll scrapes every list page and stores one community stub per dish.
func (s *DishSeeder) SeedAll(pages []DishListPage) {
	byURL := make(map[string]DishListPage, len(pages))
	for _, page := range pages {
		byURL[page.URL] = page
	}

	s.collector.OnHTML("table.wikitable tbody tr", func(e *colly.HTMLElement) {
		page, ok := byURL[e.Request.URL.String()]
		if !ok {
			return
		}
		s.handleRow(page, e.DOM)
	})

	s.collector.OnError(func(r *colly.Response, err error) {
		s.errs = append(s.errs, fmt.Errorf("fetching %s: %w", r.Request.URL, err))
	})

	for _, page := range pages {
		s.logger.WithFields(logrus.Fields{
			"country": page.Country,
			"url":     page.URL,
		}).Info("Scraping dish list")
		if err := s.collector.Visit(page.URL); err != nil {
			s.errs = append(s.errs, fmt.Errorf("visiting %s: %w", page.URL, err))
		}
	}
	s.collector.Wait()
}

// handleRow turns one table row into a recipe stub. The first cell is the
// dish name, the last textual cell usually holds a short description.
func (s *DishSeeder) handleRow(page DishListPage, row *goquery.Selection) {
	cells := row.Find("td")
	if cells.Length() == 0 {
		return // header row
	}

	title := cleanCell(cells.First().Text())
	if title == "" || len(title) > 120 {
		return
	}

	description := ""
	if cells.Length() > 1 {
		description = cleanCell(cells.Last().Text())
	}

	s.seedDish(page.Country, title, description)
}

func (s *DishSeeder) seedDish(country, title, description string) {
	normalized, err := query.Normalize(title)
	if err != nil {
		return
	}

	dedupKey := normalized.Canonical + "|" + country
	if s.processed[dedupKey] {
		s.skipped++
		return
	}
	s.processed[dedupKey] = true

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.recipes.FindByTitleOrigin(ctx, normalized.Canonical, country); err == nil {
		s.logger.WithField("title", title).Debug("Recipe already exists, skipping")
		s.skipped++
		return
	} else if !errors.Is(err, repository.ErrRecipeNotFound) {
		s.errs = append(s.errs, fmt.Errorf("checking %q: %w", title, err))
		return
	}

	if *dryRun {
		fmt.Printf("would create: %-50s [%s]\n", title, country)
		s.created++
		return
	}

	recipe := &models.Recipe{
		Title:         title,
		OriginCountry: country,
		History:       description,
		Authenticity:  models.AuthenticityCommunity,
		Published:     true,
	}
	if err := s.recipes.Create(ctx, recipe); err != nil {
		if errors.Is(err, repository.ErrDuplicateRecipe) {
			s.skipped++
			return
		}
		s.errs = append(s.errs, fmt.Errorf("creating %q: %w", title, err))
		return
	}

	s.created++
	s.logger.WithFields(logrus.Fields{
		"title":   title,
		"country": country,
		"id":      recipe.ID,
	}).Debug("Recipe stub created")
}

// cleanCell collapses whitespace and strips citation markers like [1].
func cleanCell(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	for {
		open := strings.Index(text, "[")
		end := strings.Index(text, "]")
		if open == -1 || end == -1 || end < open {
			break
		}
		text = text[:open] + text[end+1:]
	}
	return strings.TrimSpace(text)
}
