package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresmejia3/facefit/internal/api"
	"github.com/andresmejia3/facefit/internal/handoff"
	"github.com/andresmejia3/facefit/internal/utils"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// ServeOptions holds the flags of the HTTP server.
type ServeOptions struct {
	Host           string
	Port           int
	RedisURL       string
	RedisNamespace string
	MaxFrameMB     int
}

var serveOpts ServeOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API for the kiosk UI",
	Run: func(cmd *cobra.Command, args []string) {
		if err := validateServeFlags(&serveOpts); err != nil {
			utils.Die("Invalid flags", err, nil)
		}
		if err := runServe(cmd.Context(), serveOpts); err != nil {
			utils.Die("Server failed", err, nil)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveOpts.Host, "host", "0.0.0.0", "Address to listen on")
	serveCmd.Flags().IntVar(&serveOpts.Port, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveOpts.RedisURL, "redis", "", "Redis URL for kiosk result handoff (default: in-memory)")
	serveCmd.Flags().StringVar(&serveOpts.RedisNamespace, "redis-namespace", "facefit", "Key prefix for handoff entries")
	serveCmd.Flags().IntVar(&serveOpts.MaxFrameMB, "max-frame-mb", 10, "Largest accepted frame upload in megabytes")
	rootCmd.AddCommand(serveCmd)
}

func validateServeFlags(opts *ServeOptions) error {
	if opts.Port < 1 || opts.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", opts.Port)
	}
	if opts.MaxFrameMB < 1 {
		return fmt.Errorf("max-frame-mb must be >= 1, got %d", opts.MaxFrameMB)
	}
	if opts.RedisURL != "" && opts.RedisNamespace == "" {
		return errors.New("redis-namespace must not be empty")
	}
	return nil
}

// runServe blocks until ctx is cancelled or the listener fails, then shuts
// the server down gracefully.
func runServe(ctx context.Context, opts ServeOptions) error {
	cat, err := loadCatalog(ctx, catalogPath, DB)
	if err != nil {
		return err
	}

	var results handoff.Store
	if opts.RedisURL != "" {
		rs, err := handoff.NewRedisStore(ctx, opts.RedisURL, opts.RedisNamespace)
		if err != nil {
			return err
		}
		defer rs.Close()
		results = rs
		log.Info().Str("namespace", opts.RedisNamespace).Msg("handing results off through Redis")
	} else {
		results = handoff.NewMemoryStore()
	}

	state := &api.ServerState{
		Catalog:       cat,
		Recorder:      recorder(),
		Handoff:       results,
		MaxFrameBytes: int64(opts.MaxFrameMB) * 1024 * 1024,
	}
	srv := api.NewServer(state, api.ServerConfig{Host: opts.Host, Port: opts.Port})
	log.Info().Int("products", len(cat.Products)).Bool("persist", state.Recorder != nil).Msg("catalog loaded")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		// The parent context is already cancelled here
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
