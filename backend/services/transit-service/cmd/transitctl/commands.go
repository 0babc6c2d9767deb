package main

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"transitkiosk/backend/services/transit-service/internal/app"
	"transitkiosk/backend/services/transit-service/internal/config"
	"transitkiosk/backend/services/transit-service/internal/db"
	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/money"
	"transitkiosk/backend/services/transit-service/internal/password"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != config.DriverPostgres {
				return fmt.Errorf("migrate requires the postgres driver, got %q", cfg.Storage.Driver)
			}
			sqlDB, err := db.NewPostgres(cmd.Context(), cfg.Database.DSN, 1)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			if err := db.Migrate(cmd.Context(), sqlDB); err != nil {
				return err
			}
			c.logger.Info("schema up to date")
			return nil
		},
	}
}

func (c *cli) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the default stations and fares into empty tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(cmd.Context(), func(svc *app.Services) error {
				res, err := svc.Seeder.SeedDefaults(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]int{"stations": res.Stations, "prices": res.Prices})
			})
		},
	}
}

func (c *cli) cardCmd() *cobra.Command {
	card := &cobra.Command{
		Use:   "card",
		Short: "Inspect and manage cards",
	}

	var initial string
	create := &cobra.Command{
		Use:   "create <external-id>",
		Short: "Issue a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := money.Parse(initial)
			if err != nil {
				return err
			}
			return c.withServices(cmd.Context(), func(svc *app.Services) error {
				created, err := svc.Cards.Create(cmd.Context(), balance, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), toCardOutput(created))
			})
		},
	}
	create.Flags().StringVar(&initial, "balance", "0", "initial balance")

	show := &cobra.Command{
		Use:   "show <external-id>",
		Short: "Show a card with its ledger summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(cmd.Context(), func(svc *app.Services) error {
				found, err := svc.Cards.GetByExternalID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				summary, err := svc.Ledger.Summary(cmd.Context(), found.ID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), toSummaryOutput(found, summary))
			})
		},
	}

	credit := &cobra.Command{
		Use:   "credit <card-id> <amount>",
		Short: "Add funds to a card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := money.Parse(args[1])
			if err != nil {
				return err
			}
			return c.withServices(cmd.Context(), func(svc *app.Services) error {
				updated, err := svc.Trips.Credit(cmd.Context(), id, amount)
				if err != nil {
					return err
				}
				c.logger.Info("card credited", zap.Int64("card_id", id), zap.String("amount", money.Format(amount)))
				return printJSON(cmd.OutOrStdout(), toCardOutput(updated))
			})
		},
	}

	var status string
	trips := &cobra.Command{
		Use:   "trips <card-id>",
		Short: "List a card's trips, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			filter := models.TripFilter{CardID: id, Status: models.TripStatus(status)}
			if status != "" && !filter.Status.Valid() {
				return fmt.Errorf("unknown trip status %q", status)
			}
			return c.withServices(cmd.Context(), func(svc *app.Services) error {
				if _, err := svc.Cards.Get(cmd.Context(), id); err != nil {
					return err
				}
				list, err := svc.Trips.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), toTripOutputs(list))
			})
		},
	}
	trips.Flags().StringVar(&status, "status", "", "active, completed or cancelled")

	card.AddCommand(create, show, credit, trips)
	return card
}

func (c *cli) apiKeyCmd() *cobra.Command {
	keys := &cobra.Command{
		Use:   "apikey",
		Short: "Manage kiosk API keys",
	}
	keys.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Issue a key; the plaintext is printed once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(cmd.Context(), func(svc *app.Services) error {
				key, plaintext, err := svc.APIKeys.Create(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"id":      key.ID,
					"name":    key.Name,
					"api_key": plaintext,
				})
			})
		},
	})
	return keys
}

func hashPasswordCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for TRANSIT_ADMIN_PASSWORD_HASH",
		Long:  "Hashes the argument, or the first line of stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var plain string
			if len(args) == 1 {
				plain = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password on stdin")
				}
				plain = strings.TrimRight(line, "\r\n")
			}
			hash, err := password.NewBcryptHasher(cost).Hash(plain)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
