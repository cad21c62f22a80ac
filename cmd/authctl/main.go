package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"go-multi-auth/internal/cache"
	"go-multi-auth/internal/database"
	"go-multi-auth/internal/logger"
	"go-multi-auth/internal/model"
	"go-multi-auth/internal/repository"
	"go-multi-auth/internal/service"
)

type options struct {
	databaseURL string
	redisURL    string
	out         string
	timeout     time.Duration
}

func main() {
	slog.SetDefault(slog.New(logger.NewPrettyHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{
		databaseURL: os.Getenv("DATABASE_URL"),
		redisURL:    os.Getenv("REDIS_URL"),
		out:         "text",
		timeout:     30 * time.Second,
	}

	root := &cobra.Command{
		Use:          "authctl",
		Short:        "Administrative tasks for the auth service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.databaseURL == "" {
				return fmt.Errorf("database URL is required (flag --database-url or env DATABASE_URL)")
			}
			if opts.out != "text" && opts.out != "json" {
				return fmt.Errorf("--out must be text or json")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.databaseURL, "database-url", opts.databaseURL, "PostgreSQL URL (env DATABASE_URL)")
	root.PersistentFlags().StringVar(&opts.redisURL, "redis-url", opts.redisURL, "Redis URL used to invalidate cached clients (env REDIS_URL)")
	root.PersistentFlags().StringVar(&opts.out, "out", opts.out, "Output format: text|json")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", opts.timeout, "Command timeout")

	root.AddCommand(newMigrateCommand(opts), newClientCommand(opts))
	return root
}

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema when tables are missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			db, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.EnsureSchema(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
			return nil
		},
	}
}

func newClientCommand(opts *options) *cobra.Command {
	clientCmd := &cobra.Command{
		Use:   "client",
		Short: "Manage password grant clients",
	}

	var provider, name string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new password grant client for a provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := model.Provider(provider)
			if !p.Valid() {
				return fmt.Errorf("--provider must be one of users, employees, managers")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			db, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			var c cache.Cache
			if opts.redisURL != "" {
				r, err := cache.NewRedis(ctx, opts.redisURL, "multiauth:")
				if err != nil {
					return err
				}
				defer r.Close()
				c = r
			}

			registry := service.NewClientRegistry(repository.NewClientRepository(db.SQL), c, time.Minute)
			client, err := registry.CreateClient(ctx, p, name)
			if err != nil {
				return err
			}

			if opts.out == "json" {
				return printJSON(cmd, map[string]any{
					"id":       client.ID,
					"name":     client.Name,
					"provider": client.Provider,
					"secret":   client.Secret,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "client id:     %d\n", client.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "client name:   %s\n", client.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "provider:      %s\n", client.Provider)
			fmt.Fprintf(cmd.OutOrStdout(), "client secret: %s\n", client.Secret)
			return nil
		},
	}
	createCmd.Flags().StringVar(&provider, "provider", "", "users|employees|managers")
	createCmd.Flags().StringVar(&name, "name", "", "Client name")
	_ = createCmd.MarkFlagRequired("provider")

	var listProvider string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := model.Provider(listProvider)
			if p != "" && !p.Valid() {
				return fmt.Errorf("--provider must be one of users, employees, managers")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			db, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			clients, err := repository.NewClientRepository(db.SQL).List(ctx, p)
			if err != nil {
				return err
			}

			if opts.out == "json" {
				return printJSON(cmd, clients)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPROVIDER\tNAME\tREVOKED\tCREATED")
			for _, c := range clients {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", c.ID, c.Provider, c.Name, c.Revoked, c.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().StringVar(&listProvider, "provider", "", "Only list clients of this provider")

	clientCmd.AddCommand(createCmd, listCmd)
	return clientCmd
}

func (o *options) openDB(ctx context.Context) (*database.DB, error) {
	return database.New(ctx, database.Options{URL: o.databaseURL, MaxConns: 2, ApplicationName: "authctl"})
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
