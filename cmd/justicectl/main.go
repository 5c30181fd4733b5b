package main

import (
	"os"

	"justice_flow_go/config"
	"justice_flow_go/db"
	"justice_flow_go/models"
	"justice_flow_go/services"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const programName = "justicectl"

var globalFlags = struct {
	debug bool
}{}

// openDatabase loads the configuration, connects and migrates, the same way the server does
func openDatabase() *config.Config {
	if globalFlags.debug {
		log.SetLevel(log.DebugLevel)
	}
	cfg := config.Load()
	if err := db.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	services.InitAuditor(db.DB)
	return cfg
}

func main() {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Administration commands for the justice platform",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")

	rootCmd.AddCommand(
		createUserCommand(),
		purgeAuditCommand(),
		verifyAuditCommand(),
		generateKeyCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
