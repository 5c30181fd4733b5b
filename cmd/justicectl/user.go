package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"justice_flow_go/db"
	"justice_flow_go/models"
	"justice_flow_go/services"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func createUserCommand() *cobra.Command {
	var input services.CreateUserInput

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a platform account, prompting for the password",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer db.Close()
			openDatabase()

			reader := bufio.NewReader(os.Stdin)
			if input.Name == "" {
				fmt.Print("Name: ")
				name, _ := reader.ReadString('\n')
				input.Name = strings.TrimSpace(name)
			}
			if input.Email == "" {
				fmt.Print("Email: ")
				email, _ := reader.ReadString('\n')
				input.Email = strings.TrimSpace(email)
			}

			// Get password securely
			fmt.Print("Password: ")
			passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			input.Password = string(passwordBytes)

			user, err := services.CreateUser(db.DB, input)
			services.Audit.Record(cmd.Context(), services.SystemActor(), "user.create", "User", userID(user), models.AuditSeverityHigh, err)
			if err != nil {
				return err
			}

			fmt.Printf("Created %s %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Name, "name", "", "full name")
	cmd.Flags().StringVar(&input.Email, "email", "", "login email")
	cmd.Flags().StringVar(&input.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&input.Role, "role", models.RoleAdmin, "role (citizen, police, prosecutor, judge, clerk, bailiff, prison_officer, admin)")
	cmd.Flags().StringVar(&input.CourtID, "court", "", "court ID for court staff")
	cmd.Flags().StringVar(&input.PoliceStationID, "station", "", "police station ID for officers")
	cmd.Flags().StringVar(&input.PrisonID, "prison", "", "prison ID for prison officers")
	return cmd
}

func userID(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
