package cmd

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dhrubo326/imds/internal/aof"
	"github.com/dhrubo326/imds/internal/api"
	"github.com/dhrubo326/imds/internal/kverr"
	"github.com/dhrubo326/imds/internal/server"
	"github.com/dhrubo326/imds/internal/store"

	"github.com/spf13/cobra"
)

var (
	listenAddr     string
	capacity       int
	aofPath        string
	aofSync        string
	adminAddr      string
	jaegerEndpoint string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the store server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddr, "address", "a", ":6677", "Address for the server to listen on")
	serveCmd.Flags().IntVarP(&capacity, "capacity", "c", 1000, "Maximum number of live keys (0 disables eviction)")
	serveCmd.Flags().StringVar(&aofPath, "aof", "appendonly.aof", "Path of the append-only file (empty disables persistence)")
	serveCmd.Flags().StringVar(&aofSync, "aof-sync", "everysec", "AOF sync policy: always, everysec or no")
	serveCmd.Flags().StringVar(&adminAddr, "admin-address", ":7677", "Address of the admin HTTP server (empty disables it)")
	serveCmd.Flags().StringVar(&jaegerEndpoint, "jaeger", "", "Jaeger collector endpoint for tracing (empty disables it)")
}

func runServe(cmd *cobra.Command, args []string) error {
	st := store.New(capacity)

	// Recover state from the log before attaching it for new writes.
	var aofLog *aof.Log
	if aofPath != "" {
		policy, err := aof.ParseSyncPolicy(aofSync)
		if err != nil {
			return err
		}
		aofLog, err = aof.Open(aofPath, policy)
		if err != nil {
			return err
		}
		defer aofLog.Close()

		applied, err := aofLog.Replay(func(record []string) error {
			if err := st.ApplyRecord(record); err != nil && !kverr.IsNotFound(err) {
				return err
			}
			return nil
		})
		if err != nil {
			return err
		}
		trimmed := st.FinishRestore(aofLog)
		log.Printf("recovered %d records from %s (%d keys, %d trimmed to capacity)",
			applied, aofPath, st.Len(), trimmed)
	}

	var tracer *api.Tracer
	if jaegerEndpoint != "" {
		var err error
		tracer, err = api.NewTracer("imds", jaegerEndpoint)
		if err != nil {
			return err
		}
	}

	metrics := api.NewMetrics()
	srv := server.New(server.Config{
		Addr:    listenAddr,
		Store:   st,
		Metrics: metrics,
		Tracer:  tracer,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := srv.Start(); err != nil {
		return err
	}
	log.Printf("listening on %s", listenAddr)

	var adminSrv *http.Server
	if adminAddr != "" {
		adminSrv = &http.Server{
			Addr:    adminAddr,
			Handler: api.Router(api.NewHandler(st, aofLog)),
		}
		go func() {
			log.Printf("admin server on %s", adminAddr)
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("admin server error: %v", err)
				cancel()
			}
		}()
		go mirrorStats(ctx, metrics, st, aofLog)
	}

	select {
	case sig := <-sigChan:
		log.Printf("received signal %v, initiating shutdown", sig)
	case <-ctx.Done():
		log.Println("shutting down due to error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	if adminSrv != nil {
		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("error during admin shutdown: %v", err)
		}
	}
	if tracer != nil {
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			log.Printf("error flushing traces: %v", err)
		}
	}
	return nil
}

// mirrorStats periodically copies store and AOF counters into the
// Prometheus gauges so /metrics stays current between commands.
func mirrorStats(ctx context.Context, metrics *api.Metrics, st *store.Store, aofLog *aof.Log) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m := st.Metrics()
			metrics.SetStoreStats(m.Keys, m.Evictions)
			if aofLog != nil {
				appends, bytes := aofLog.Stats()
				metrics.SetAOFStats(appends, bytes)
			}
		case <-ctx.Done():
			return
		}
	}
}
