package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"orderscan/pkg/config"
	"orderscan/pkg/handlers"
	"orderscan/pkg/services/catalog"
	"orderscan/pkg/services/match"
	"orderscan/pkg/services/ocr"
	"orderscan/pkg/services/order"
	"orderscan/pkg/services/render"
	"orderscan/pkg/store"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		logrus.WithError(err).Fatal("Error loading configuration")
	}
	log, err := cfg.Logger()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid log level")
	}

	if cfg.Catalog.Path == "" {
		log.Fatal("CATALOG_PATH is not set")
	}
	cat, err := catalog.Load(context.Background(), cfg.Catalog, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load catalog")
	}
	log.WithFields(logrus.Fields{
		"products":  cat.Len(),
		"aliases":   len(cat.Aliases()),
		"conflicts": len(cat.Conflicts()),
	}).Info("catalog loaded")

	dicts, err := match.LoadDictionaries(cfg.Dictionaries.Stroke, cfg.Dictionaries.Radical)
	if err != nil {
		log.WithError(err).Fatal("Failed to load decomposition dictionaries")
	}
	engine, err := order.New(cat, order.Options{
		Template:     cfg.Template,
		Dictionaries: dicts,
		Thresholds:   &cfg.Thresholds,
		Logger:       log,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to build order engine")
	}

	h := &handlers.Handler{Engine: engine, RenderDir: cfg.Render.Dir, Log: log}

	// Set up database connection
	if cfg.DatabaseURL != "" {
		db, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to database")
		}
		if err := db.Migrate(); err != nil {
			log.WithError(err).Fatal("Failed to migrate database")
		}
		h.Store = db
	} else {
		log.Warn("DATABASE_URL is not set, orders will not be stored")
	}

	if cfg.Azure.Endpoint != "" {
		h.OCR = ocr.NewService(cfg.Azure.Endpoint, cfg.Azure.Key, cfg.Azure.Language, log)
		r, err := render.New(cfg.Render.FontPath)
		if err != nil {
			log.WithError(err).Fatal("Failed to load review font")
		}
		r.MaxWidth = cfg.Render.MaxWidth
		h.Renderer = r
	}

	// Set up Gin router
	r := gin.Default()
	h.Register(r)

	log.WithField("port", cfg.Port).Info("listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
