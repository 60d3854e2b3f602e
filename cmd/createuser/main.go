package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/KotFed0t/portfolio_tracker/config"
	"github.com/KotFed0t/portfolio_tracker/data"
	"github.com/KotFed0t/portfolio_tracker/data/repository/postgres"
	"golang.org/x/crypto/bcrypt"
)

// createuser provisions the single login for the tracker. Run it once after
// the first migration.
func main() {
	username := flag.String("username", "", "login name")
	password := flag.String("password", "", "login password")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: createuser -username <name> -password <password>")
		os.Exit(2)
	}

	cfg := config.MustLoad()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", slog.String("err", err.Error()))
		os.Exit(1)
	}

	userID, err := pgRepo.InsertUser(context.Background(), *username, string(hash))
	if err != nil {
		slog.Error("failed to insert user", slog.String("err", err.Error()))
		os.Exit(1)
	}

	slog.Info("user created", slog.Int64("userID", userID), slog.String("username", *username))
}
