// Seeds initial accounts from a YAML file. Meant for bootstrapping the first
// administrador; existing usernames are left untouched.
package main

import (
	"flag"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/gestao-usuarios/backend/internal/auth"
	"github.com/gestao-usuarios/backend/internal/config"
	"github.com/gestao-usuarios/backend/internal/db"
	"github.com/gestao-usuarios/backend/internal/logger"
	"github.com/gestao-usuarios/backend/internal/permissions"
)

type seedUser struct {
	Username string  `yaml:"username"`
	Password string  `yaml:"password"`
	Email    *string `yaml:"email"`
	Role     string  `yaml:"role"`
	IsActive *bool   `yaml:"is_active"`
}

type seedFile struct {
	Users []seedUser `yaml:"users"`
}

func main() {
	file := flag.String("file", "seeds/users.yaml", "path to the seed file")
	flag.Parse()

	_ = godotenv.Load(".env.local")
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.IsDevelopment()})

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("failed to read seed file")
	}

	var seeds seedFile
	if err := yaml.Unmarshal(raw, &seeds); err != nil {
		log.Fatal().Err(err).Msg("failed to parse seed file")
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := auth.Migrate(database); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate tables")
	}

	created := 0
	for _, s := range seeds.Users {
		if s.Username == "" || s.Password == "" {
			log.Warn().Str("username", s.Username).Msg("skipping seed entry without username or password")
			continue
		}

		role := s.Role
		if role == "" {
			role = permissions.RoleLeitura
		}
		if !permissions.ValidRole(role) {
			log.Warn().Str("username", s.Username).Str("role", role).Msg("skipping seed entry with unknown role")
			continue
		}

		var count int64
		if err := database.Model(&auth.User{}).Where("username = ?", s.Username).Count(&count).Error; err != nil {
			log.Fatal().Err(err).Msg("failed to query users")
		}
		if count > 0 {
			log.Info().Str("username", s.Username).Msg("user already exists, skipping")
			continue
		}

		user := auth.User{
			Username: s.Username,
			Email:    s.Email,
			Role:     role,
			IsActive: s.IsActive == nil || *s.IsActive,
		}
		if err := auth.SetPassword(&user, s.Password); err != nil {
			log.Fatal().Err(err).Msg("failed to hash password")
		}
		if err := database.Create(&user).Error; err != nil {
			log.Fatal().Err(err).Str("username", s.Username).Msg("failed to create user")
		}

		log.Info().Str("username", user.Username).Str("role", user.Role).Msg("seeded user")
		created++
	}

	log.Info().Int("created", created).Msg("seeding complete")
}
