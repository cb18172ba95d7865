package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/autogenz/movieai/agent"
	"github.com/autogenz/movieai/ai"
	"github.com/autogenz/movieai/catalog"
	catalogpg "github.com/autogenz/movieai/catalog/postgres"
	"github.com/autogenz/movieai/internal/profile"
	"github.com/autogenz/movieai/internal/version"
	"github.com/autogenz/movieai/kinopoisk"
	"github.com/autogenz/movieai/plugin/telegram"
	"github.com/autogenz/movieai/recommend"
	"github.com/autogenz/movieai/server"
	"github.com/autogenz/movieai/store"
	"github.com/autogenz/movieai/store/db"
	"github.com/autogenz/movieai/stream"
)

var rootCmd = &cobra.Command{
	Use:   "movieai",
	Short: `An AI-powered movie recommendation service. Describe a mood, a genre, or a movie you liked and get a stream of matches.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Try to load .env from the current directory; deployments use
		// real environment variables instead.
		_ = godotenv.Load()
		return nil
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		instanceProfile := &profile.Profile{
			Mode:        viper.GetString("mode"),
			Addr:        viper.GetString("addr"),
			Port:        viper.GetInt("port"),
			Driver:      viper.GetString("driver"),
			DSN:         viper.GetString("dsn"),
			InstanceURL: viper.GetString("instance-url"),
			Version:     version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			return errors.Wrap(err, "invalid configuration")
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		return run(ctx, instanceProfile)
	},
}

func run(ctx context.Context, instanceProfile *profile.Profile) error {
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return errors.Wrap(err, "failed to create db driver")
	}
	storeInstance := store.New(dbDriver, instanceProfile)
	defer storeInstance.Close()
	if err := storeInstance.Migrate(ctx); err != nil {
		return errors.Wrap(err, "failed to migrate")
	}

	catalogDB, err := catalogpg.Open(instanceProfile.CatalogDSN)
	if err != nil {
		return errors.Wrap(err, "failed to open catalog")
	}

	aiConfig := ai.NewConfigFromProfile(instanceProfile)
	if err := aiConfig.Validate(); err != nil {
		return errors.Wrap(err, "invalid ai configuration")
	}
	embeddingService, err := ai.NewEmbeddingService(&aiConfig.Embedding)
	if err != nil {
		return errors.Wrap(err, "failed to initialize embedding service")
	}
	llmService, err := ai.NewLLMService(&aiConfig.LLM)
	if err != nil {
		return errors.Wrap(err, "failed to initialize LLM service")
	}
	slog.Info("ai services initialized",
		"llm_model", aiConfig.LLM.Model,
		"embedding_model", aiConfig.Embedding.Model,
		"embedding_dimensions", embeddingService.Dimensions())

	engine := recommend.NewEngine(catalogDB, embeddingService, recommend.DefaultConfig())
	provider := kinopoisk.NewClient(instanceProfile.KinopoiskAPIKey)
	pipeline := stream.New(storeInstance, provider, catalogDB)

	newAgent := func(locale string) *agent.Agent {
		return agent.New(llmService, catalog.ParseLocale(locale))
	}

	s := server.NewServer(instanceProfile, storeInstance, engine, pipeline, llmService, newAgent)

	c := make(chan os.Signal, 1)
	signal.Notify(c, terminationSignals...)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server failed")
		}
		return nil
	})

	if instanceProfile.TelegramBotToken != "" {
		group.Go(func() error {
			bot, err := telegram.NewBot(instanceProfile)
			if err != nil {
				// The HTTP surface still works without the bot.
				slog.Warn("failed to start telegram bot", "error", err)
				return nil
			}
			if err := bot.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return errors.Wrap(err, "telegram bot failed")
			}
			return nil
		})
	}

	printGreetings(instanceProfile)

	group.Go(func() error {
		select {
		case <-c:
		case <-groupCtx.Done():
		}
		return s.Shutdown(context.Background())
	})

	return group.Wait()
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "postgres")
	viper.SetDefault("port", 8080)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8080, "port of server")
	rootCmd.PersistentFlags().String("driver", "postgres", "database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("instance-url", "", "the url of your movieai instance")

	for _, flag := range []string{"mode", "addr", "port", "driver", "dsn", "instance-url"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("movieai")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("MovieAI %s started successfully!\n", profile.Version)
	fmt.Printf("Build: %s\n", version.StringFull())

	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
	}

	fmt.Printf("Database driver: %s\n", profile.Driver)
	fmt.Printf("Mode: %s\n", profile.Mode)
	fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
	fmt.Printf("Access MovieAI at: %s\n", profile.InstanceURL)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to run", "error", err)
		os.Exit(1)
	}
}
