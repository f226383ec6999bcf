package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/certlab/mrvalidate/internal/model"
)

var (
	servePort   int
	serveRules  string
	serveReport string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the validation HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(serveRules, serveReport)
		if err != nil {
			return err
		}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/api/validate", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				IDs []string `json:"ids"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			if len(body.IDs) == 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ids is required"})
				return
			}

			outcomes := env.Validator.ValidateMany(req.Context(), body.IDs)
			docs := make([]outcomeDoc, len(outcomes))
			for i, o := range outcomes {
				docs[i] = outcomeDoc{ID: o.ID, Result: o.Result}
				if o.Err != nil {
					kind, _ := model.KindOf(o.Err)
					docs[i].Error = &errorDoc{Kind: string(kind), Message: o.Err.Error()}
				}
			}
			writeJSON(w, http.StatusOK, docs)
		})

		r.Get("/api/rules", func(w http.ResponseWriter, _ *http.Request) {
			set := env.Rules.Current()
			ids := make([]string, 0, len(set.Rules))
			for id := range set.Rules {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			writeJSON(w, http.StatusOK, map[string]any{
				"info":  env.Rules.Info(),
				"rules": ids,
			})
		})

		r.Post("/api/rules/reload", func(w http.ResponseWriter, _ *http.Request) {
			if err := env.Rules.Reload(); err != nil {
				zap.L().Error("rules reload failed", zap.Error(err))
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, env.Rules.Info())
		})

		r.Get("/api/items", func(w http.ResponseWriter, req *http.Request) {
			ids, err := env.Validator.Items(req.Context())
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": ids})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveRules, "rules", "", "rule configuration file (default from config)")
	serveCmd.Flags().StringVar(&serveReport, "report", "", "extracted MR report file (default from config)")
	rootCmd.AddCommand(serveCmd)
}
