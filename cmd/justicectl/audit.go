package main

import (
	"errors"
	"fmt"

	"justice_flow_go/db"
	"justice_flow_go/services"
	"justice_flow_go/services/jobs"

	"github.com/spf13/cobra"
)

func purgeAuditCommand() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "purge-audit",
		Short: "Run the retention sweep now",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer db.Close()
			cfg := openDatabase()
			if days > 0 {
				cfg.AuditRetentionDays = days
			}
			return jobs.RunRetentionSweep(cmd.Context(), db.DB, cfg)
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention in days (defaults to AUDIT_RETENTION_DAYS)")
	return cmd
}

func verifyAuditCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-audit-chain",
		Short: "Recompute the audit hash chain and report the first break",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer db.Close()
			openDatabase()

			report, err := services.VerifyAuditChain(cmd.Context(), db.DB)
			if err != nil {
				return err
			}
			if report.Valid {
				fmt.Printf("Audit chain intact (%d entries checked)\n", report.Checked)
				return nil
			}
			fmt.Printf("Audit chain broken at sequence %d: %s\n", report.BrokenAt, report.Reason)
			return errors.New("audit chain verification failed")
		},
	}
}

func generateKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-key",
		Short: "Print a new DATA_ENCRYPTION_KEY for sealing confidential notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := services.GenerateEncryptionKey()
			if err != nil {
				return err
			}
			fmt.Println(key)
			return nil
		},
	}
}
