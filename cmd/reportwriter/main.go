package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/reportwriter/internal/handler"
	appI18n "github.com/pavelanni/reportwriter/internal/i18n"
	"github.com/pavelanni/reportwriter/internal/llm"
	"github.com/pavelanni/reportwriter/internal/llm/prompts"
	"github.com/pavelanni/reportwriter/internal/model"
	"github.com/pavelanni/reportwriter/internal/report"
	"github.com/pavelanni/reportwriter/internal/seed"
	"github.com/pavelanni/reportwriter/internal/store"
)

//go:generate templ generate -path ../../internal/handler/views

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reportwriter",
		Short: "Student report writer with comment pools and templates",
	}

	serve := serveCmd()
	root.AddCommand(
		serve,
		generateCmd(),
		exportCmd(),
		templateCmd(),
		backupCmd(),
		restoreCmd(),
		seedCmd(),
		userCmd(),
	)

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `reportwriter --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP report writing server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "reportwriter.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Default UI language (en, ru)")
	f.Bool("negotiate-lang", true, "Pick the UI language from the lang cookie or Accept-Language")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /reports)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("llm-url", "", "OpenAI-compatible API base URL for comment suggestions (empty disables them)")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("suggest-tone", string(prompts.ToneWarm), "Default tone for comment suggestions (formal, warm, concise)")
	f.Int("suggest-count", 3, "Default number of suggested comments per request")
	f.String("admin-password", "", "Initial admin password (or set REPORTWRITER_ADMIN_PASSWORD)")
	f.Bool("seed-demo", false, "Create the demo template and class on startup")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

// addDBFlags registers the flags shared by the offline commands.
func addDBFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db", "reportwriter.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("REPORTWRITER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("reportwriter")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/reportwriter")
	v.AddConfigPath("/etc/reportwriter")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// openStore opens the database named by the command's db flag.
func openStore(v *viper.Viper) (*store.Store, error) {
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	// Seed default admin user if no users exist.
	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if n, err := db.CleanupExpiredSessions(); err != nil {
		slog.Warn("failed to clean up expired sessions", "error", err)
	} else if n > 0 {
		slog.Info("removed expired sessions", "count", n)
	}
	if v.GetBool("seed-demo") {
		if _, err := seed.Apply(db); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	tone := strings.ToLower(strings.TrimSpace(v.GetString("suggest-tone")))
	if !prompts.IsValidTone(tone) {
		slog.Warn("invalid suggest-tone, using warm", "tone", tone)
		tone = string(prompts.ToneWarm)
	}

	// Suggestions are optional: an unreachable endpoint disables them
	// instead of stopping the server.
	var llmClient *llm.Client
	if url := v.GetString("llm-url"); url != "" {
		llmClient = llm.New(url, v.GetString("llm-key"), v.GetString("llm-model"))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := llmClient.Ping(ctx)
		cancel()
		if err != nil {
			slog.Warn("LLM health check failed, comment suggestions disabled", "url", url, "error", err)
			llmClient = nil
		} else {
			slog.Info("LLM endpoint OK", "url", url, "model", v.GetString("llm-model"))
		}
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.AppConfig{
		BasePath:        basePath,
		SecureCookies:   v.GetBool("secure-cookies"),
		Lang:            lang,
		SuggestTone:     tone,
		SuggestCount:    v.GetInt("suggest-count"),
		SuggestDisabled: llmClient == nil,
	}

	h, err := handler.New(db, llmClient, report.NewGenerator(), cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang, v.GetBool("negotiate-lang")))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"base_path", basePath,
		"suggestions", !cfg.SuggestDisabled,
		"suggest_tone", cfg.SuggestTone,
	)
	return http.ListenAndServe(addr, r)
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or REPORTWRITER_ADMIN_PASSWORD env var")
	}

	if _, err := createUser(db, "admin", "Administrator", password, model.UserRoleAdmin); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}

func createUser(db *store.Store, username, displayName, password string, role model.UserRole) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	if displayName == "" {
		displayName = username
	}
	return db.CreateUser(model.User{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	})
}
