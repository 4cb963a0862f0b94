package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nextier/outreach-cli/internal/capture"
	"github.com/nextier/outreach-cli/internal/pipeline"
	"github.com/nextier/outreach-cli/internal/store"
	"github.com/nextier/outreach-cli/pkg/signalhouse"
)

var servePort int

// newRouter builds the webhook server routes around a store.
func newRouter(st store.Store, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Post("/webhook/inbound", func(w http.ResponseWriter, r *http.Request) {
		var msg signalhouse.InboundMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if msg.From == "" {
			http.Error(w, `{"error":"from is required"}`, http.StatusBadRequest)
			return
		}

		events := capture.Classify(msg.From, msg.Body)
		if err := st.SaveCaptureEvents(r.Context(), events); err != nil {
			zap.L().Error("serve: failed to persist capture events",
				zap.String("from", msg.From),
				zap.Error(err),
			)
		}

		zap.L().Info("serve: inbound reply classified",
			zap.String("from", msg.From),
			zap.Int("events", len(events)),
		)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(events)
	})

	r.Get("/campaigns/{id}/leads.csv", func(w http.ResponseWriter, r *http.Request) {
		leads, err := st.ListLeads(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, `{"error":"campaign not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, pipeline.ExportLeadsCSV(leads))
	})

	return r
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the inbound-reply webhook server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st, cfg.Server.AllowedOrigins),
		}

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

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
