package cmd

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/MeKo-Tech/imageadjust/internal/preset"
	"github.com/MeKo-Tech/imageadjust/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the adjustment HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().Int("max-sessions", 32, "Maximum number of live sessions; the least recently used is evicted")
	serveCmd.Flags().Int("max-concurrent", runtime.NumCPU(), "Max concurrent adjustments (default: number of CPUs)")
	serveCmd.Flags().Int64("max-upload-mb", 64, "Maximum upload size in MiB")
	serveCmd.Flags().Int("thumbnail-side", 0, "Default longest side of returned images (0 keeps full size)")
	serveCmd.Flags().Duration("adjust-timeout", 30*time.Second, "Time an adjustment may wait for a free slot")
	serveCmd.Flags().Duration("status-interval", time.Second, "Interval of the status event stream")
	serveCmd.Flags().String("cache-control", "no-store", "Cache-Control header for served images")
	serveCmd.Flags().Bool("presets", true, "Expose presets from --presets-db")

	bindFlags(serveCmd, map[string]string{
		"serve.addr":            "addr",
		"serve.max_sessions":    "max-sessions",
		"serve.max_concurrent":  "max-concurrent",
		"serve.max_upload_mb":   "max-upload-mb",
		"serve.thumbnail_side":  "thumbnail-side",
		"serve.adjust_timeout":  "adjust-timeout",
		"serve.status_interval": "status-interval",
		"serve.cache_control":   "cache-control",
		"serve.presets":         "presets",
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	cfg := server.Config{
		MaxSessions:    viper.GetInt("serve.max_sessions"),
		MaxConcurrent:  viper.GetInt("serve.max_concurrent"),
		MaxUploadBytes: viper.GetInt64("serve.max_upload_mb") << 20,
		ThumbnailSide:  viper.GetInt("serve.thumbnail_side"),
		AdjustTimeout:  viper.GetDuration("serve.adjust_timeout"),
		StatusInterval: viper.GetDuration("serve.status_interval"),
		CacheControl:   viper.GetString("serve.cache_control"),
	}

	if viper.GetBool("serve.presets") {
		store, err := preset.Open(viper.GetString("presets_db"))
		if err != nil {
			return err
		}
		defer store.Close()
		cfg.Presets = store
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, logger)
	return srv.Run(ctx, viper.GetString("serve.addr"))
}
