package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dualvision-worker-go/internal/config"
	"dualvision-worker-go/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "streamer",
	Short: "DualVision camera streamer",
	Long: `streamer captures frames from a local camera, runs a learned object
detector and a Haar cascade detector on them, and serves the annotated
frames as an MJPEG stream.

Configuration comes from the environment (and an optional .env file).
Flags override the matching environment values.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("settings", "", "settings file path")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("settings_path", rootCmd.PersistentFlags().Lookup("settings"))
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment, applies flag overrides and installs the logger
func loadConfig() *config.Config {
	cfg := config.Load()

	if v := viper.GetString("log_level"); v != "" {
		cfg.LogLevel = v
	}
	if v := viper.GetString("settings_path"); v != "" {
		cfg.SettingsPath = v
	}
	if viper.IsSet("port") && viper.GetInt("port") > 0 {
		cfg.Port = viper.GetInt("port")
	}
	if viper.IsSet("camera_index") && viper.GetInt("camera_index") >= 0 {
		cfg.DefaultDeviceIndex = viper.GetInt("camera_index")
	}
	if viper.GetBool("auto_start") {
		cfg.AutoStart = true
	}

	logging.Setup(cfg, os.Stderr)
	log.Debug().Str("settings", cfg.SettingsPath).Str("log_level", cfg.LogLevel).Msg("Configuration loaded")
	return cfg
}
