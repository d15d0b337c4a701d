package main

import (
	"github.com/bloomhealth/bloom/config"
	"github.com/bloomhealth/bloom/models"
	"github.com/bloomhealth/bloom/routes"
	"github.com/bloomhealth/bloom/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync() //nolint:errcheck

	db := config.InitDatabase(&models.User{}, &models.UserProfile{}, &models.CheckIn{}, &models.CycleEvent{})

	r := routes.SetupRouter(db)

	utils.Sugar.Infow("starting server", "port", cfg.AppPort, "timezone", config.Location().String())
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
