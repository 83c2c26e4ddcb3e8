package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/auth"
	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/seed"
	transport "quiz-attempt-service/internal/transport/http"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz attempt server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.Secret == "" {
		return errors.New("auth.secret (or JWT_SECRET) must be set")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	// the memory driver starts empty on every boot
	if c.driver == config.DriverMemory && cfg.Seed.Path != "" {
		if err := seedFromFile(ctx, c, cfg.Seed.Path); err != nil {
			return err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := transport.NewRouter(transport.RouterConfig{
		Attempts: app.NewAttemptService(c.store, c.quizzes, c.locker),
		Wallets:  app.NewWalletService(c.store),
		Auth:     auth.NewVerifier(cfg.Auth.Secret),
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		glog.Infof("starting quiz attempt service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Errorf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		glog.Infof("shutting down server...")
	case <-ctx.Done():
		glog.Infof("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func seedFromFile(ctx context.Context, c *components, path string) error {
	f, err := seed.Load(path)
	if err != nil {
		return err
	}
	sum, err := seed.Apply(ctx, f, c.source, c.store.Wallets())
	if err != nil {
		return err
	}
	for _, q := range f.Quizzes {
		c.invalidate(ctx, q.Quiz().ID)
	}
	glog.Infof("seeded %d quizzes and %d deposits from %s", sum.Quizzes, sum.Deposits, path)
	return nil
}
