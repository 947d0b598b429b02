package gamenite

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/charlesvien/game-nite/internal/actions"
	"github.com/charlesvien/game-nite/internal/auth"
	"github.com/charlesvien/game-nite/internal/config"
	"github.com/charlesvien/game-nite/internal/export"
	"github.com/charlesvien/game-nite/internal/games"
	"github.com/charlesvien/game-nite/internal/railway"
	"github.com/charlesvien/game-nite/internal/servers"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "gamenite",
	Short: "Spin up and share game servers on Railway",
	Long: `Game Nite provisions game servers on Railway and hands out share links
so friends can connect:
1. Pick a game from the catalog (gamenite games)
2. Create a server (gamenite servers create <game> <name>)
3. Share the connection details (gamenite share <service-id>)

Run "gamenite serve" for the web interface.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gamenite.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json or yaml")
	rootCmd.PersistentFlags().String("log-level", "", "log level (overrides LOG_LEVEL)")
	cobra.CheckErr(viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level")))
}

func initConfig() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "Ignoring .env:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".gamenite")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// app holds the collaborators a command needs, built once per invocation.
type app struct {
	cfg     *config.Config
	log     *logrus.Logger
	catalog *games.Catalog
	repo    *railway.Repository
	servers *servers.Service
	actions *actions.Actions
}

func newApp() (*app, error) {
	cfg := config.Load(viper.GetViper())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return buildApp(cfg)
}

func buildApp(cfg *config.Config) (*app, error) {
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}

	catalog, err := games.LoadCatalog(cfg.GamesFile)
	if err != nil {
		return nil, fmt.Errorf("load games: %w", err)
	}

	client := railway.NewClient(cfg.RailwayAPIToken, railway.WithEndpoint(cfg.RailwayAPIURL))
	repo := railway.NewRepository(client, railway.RepositoryConfig{
		ProjectID:     cfg.RailwayProjectID,
		EnvironmentID: cfg.RailwayEnvironmentID,
		WorkspaceID:   cfg.RailwayWorkspaceID,
		Logger:        logrus.NewEntry(logger),
	})
	svc := servers.NewService(repo, catalog)

	return &app{
		cfg:     cfg,
		log:     logger,
		catalog: catalog,
		repo:    repo,
		servers: svc,
		actions: actions.New(svc, logrus.NewEntry(logger)),
	}, nil
}

// operatorContext is the context CLI actions run under. Holding the API
// token is what authorizes the operator.
func operatorContext(ctx context.Context) context.Context {
	return auth.WithUser(ctx, auth.Operator())
}

// render writes v in the selected output format.
func render(cmd *cobra.Command, v any) error {
	exporter, err := export.New(outputFormat)
	if err != nil {
		return err
	}
	out, err := exporter.Export(v)
	if err != nil {
		return fmt.Errorf("%s export failed: %w", exporter.Name(), err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// resultError turns a failed action result into a command error.
func resultError[T any](res actions.Result[T]) error {
	if res.Success {
		return nil
	}
	return fmt.Errorf("%s", res.Error)
}
