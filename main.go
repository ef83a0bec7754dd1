package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/gestao-usuarios/backend/internal/admin"
	"github.com/gestao-usuarios/backend/internal/auth"
	"github.com/gestao-usuarios/backend/internal/config"
	"github.com/gestao-usuarios/backend/internal/db"
	"github.com/gestao-usuarios/backend/internal/logger"
	"github.com/gestao-usuarios/backend/internal/middleware"
	"github.com/gestao-usuarios/backend/internal/users"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.IsDevelopment()})

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := auth.Migrate(database); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate tables")
	}

	sessions := auth.NewSessionManager(database)
	resolver := auth.SessionInfo{Sessions: sessions}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORSMiddleware)

	r.Get("/", RootHandler)
	r.Mount("/auth", auth.NewHandler(database, sessions).Routes())
	r.Mount("/api", users.NewHandler(database).Routes(resolver))
	r.Mount("/admin", admin.NewHandler(database).Routes(resolver))

	log.Info().Str("port", cfg.Port).Msg("server listening")
	if err := http.ListenAndServe("0.0.0.0:"+cfg.Port, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
