package cmd

import (
	"context"
	"errors"
	"time"

	"helpdesk/internal/auditlog"
	"helpdesk/internal/cache"
	"helpdesk/internal/database"
	"helpdesk/internal/master/users"
	"helpdesk/internal/repository"
	"helpdesk/pkg/roles"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create the first administrator profile.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL environment variable is not set")
		}

		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		fullName, _ := cmd.Flags().GetString("fullname")
		phone, _ := cmd.Flags().GetString("phone")
		if username == "" || password == "" {
			return errors.New("--username and --password are required")
		}
		if fullName == "" {
			fullName = username
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := database.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		repo := repository.NewRepository(db)
		service := users.NewService(users.NewRepository(repo), auditlog.Discard{}, cache.NewInvalidator(cache.NewMemoryStore(), log), log)

		req := users.CreateProfileRequest{
			Username: username,
			Password: password,
			FullName: fullName,
			Role:     roles.Admin,
		}
		if phone != "" {
			req.Phone = &phone
		}

		profile, err := service.Create(ctx, req, 0)
		if err != nil {
			return err
		}

		log.Info("Administrator created", zap.Int("id", profile.ID), zap.String("username", profile.Username))
		return nil
	},
}

func init() {
	createAdminCmd.Flags().String("username", "", "Login name")
	createAdminCmd.Flags().String("password", "", "Initial password")
	createAdminCmd.Flags().String("fullname", "", "Display name")
	createAdminCmd.Flags().String("phone", "", "WhatsApp number")
}
