package gamenite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/charlesvien/game-nite/internal/auth"
	"github.com/charlesvien/game-nite/internal/config"
	"github.com/charlesvien/game-nite/internal/web"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web interface",
	Long: `Serve starts the Game Nite site. It needs the Railway settings plus
AUTH_SECRET for session cookies. Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET
to enable Google sign-in.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(viper.GetViper())
		if err := cfg.ValidateServer(); err != nil {
			return err
		}
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}

		store, err := auth.OpenStore(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()

		sessions, err := auth.NewSessions(cfg.AuthSecret, cfg.SecureCookies(), store)
		if err != nil {
			return err
		}

		var google *auth.GoogleAgent
		if cfg.GoogleEnabled() {
			client := auth.GoogleConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.AuthURL)
			google = auth.NewGoogleAgent(client, cfg.AuthSecret, sessions, store, a.log.WithField("component", "google"))
		}

		site, err := web.New(web.Options{
			Actions:     a.actions,
			Connections: a.servers,
			Catalog:     a.catalog,
			Sessions:    sessions,
			Users:       store,
			Google:      google,
			Logger:      logrus.NewEntry(a.log),
		})
		if err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		return listenAndServe(ctx, a.log, &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           site.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		})
	},
}

// listenAndServe runs srv until ctx is cancelled, then drains open requests.
func listenAndServe(ctx context.Context, log *logrus.Logger, srv *http.Server) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
