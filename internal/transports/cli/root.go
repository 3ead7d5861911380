package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pzadmin/internal/app"
	"pzadmin/internal/config"
	"pzadmin/internal/storage"
	"pzadmin/pkg/logger"
)

type options struct {
	configPath string
}

// New создает корневую CLI-команду.
func New(version string) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "pzadmin",
		Short:         "Панель управления сервером Project Zomboid",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("PZADMIN_CONFIG"), "путь к YAML-конфигу")

	root.AddCommand(newVersionCmd(version))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newSendCmd(opts))
	root.AddCommand(newExecCmd(opts))
	root.AddCommand(newHostCmd(opts))
	root.AddCommand(newTicketsCmd(opts))

	return root
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version)
		},
	}
}

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP API и планировщик",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			lg := logger.New(cfg.Agent.LogLevel)
			a, err := app.NewApp(cmd.Context(), cfg, lg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(cmd.Context())
		},
	}
}

func newSendCmd(opts *options) *cobra.Command {
	var response bool
	cmd := &cobra.Command{
		Use:   "send <command>",
		Short: "Отправить команду игровому серверу",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub := "send"
			if response {
				sub = "query"
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				resp, err := a.Service("cli").Execute(ctx, operator(), "server", sub, []string{strings.Join(args, " ")})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().BoolVarP(&response, "response", "r", false, "вернуть вывод доставки")
	return cmd
}

func newExecCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "exec /<module> <command> [args...]",
		Short: "Выполнить команду модуля",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				resp, err := a.Service("cli").ExecuteText(ctx, operator(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
}

func newHostCmd(opts *options) *cobra.Command {
	hostCmd := &cobra.Command{
		Use:   "host",
		Short: "Состояние узла",
	}
	hostCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Показать состояние узла и процесса сервера",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
				defer cancel()

				resp, err := a.Registry.Execute(ctx, "host", "status", nil)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	})
	return hostCmd
}

func newTicketsCmd(opts *options) *cobra.Command {
	ticketsCmd := &cobra.Command{
		Use:   "tickets",
		Short: "Тикеты игроков",
	}
	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "Показать тикеты, новые первыми",
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" && !storage.ValidTicketStatus(status) {
				return fmt.Errorf("unknown ticket status %q", status)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				tickets, err := a.Store.ListTickets(ctx, status)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), tickets)
			})
		},
	}
	list.Flags().StringVar(&status, "status", "", "фильтр: open или closed")
	ticketsCmd.AddCommand(list)
	return ticketsCmd
}

// withApp собирает приложение без запуска транспортов; логи идут в stderr.
func withApp(cmd *cobra.Command, opts *options, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	lg := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Agent.LogLevel)
	a, err := app.NewApp(cmd.Context(), cfg, lg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

func operator() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
