package main

import (
	"fmt"
	"os"

	"beamshare/pkg/logger"

	"github.com/pion/webrtc/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagRelayURL  string
	flagLogLevel  string
	flagLogFormat string
	flagSTUN      []string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "beamshare",
	Short: "Share a screen with viewers over WebRTC",
	Long: `BeamShare streams a presenter's screen to viewers through peer-to-peer
WebRTC connections. A lightweight relay only brokers room codes and
negotiation messages; media never touches the server.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger() *zap.SugaredLogger {
	return logger.New(flagLogLevel, flagLogFormat).Sugar()
}

func iceServers() []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, len(flagSTUN))
	for _, url := range flagSTUN {
		servers = append(servers, webrtc.ICEServer{URLs: []string{url}})
	}
	return servers
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRelayURL, "relay-url", "ws://localhost:8080/ws", "WebSocket URL of the signaling relay")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().StringSliceVar(&flagSTUN, "stun", nil, "STUN server URLs (defaults to Google STUN)")
}
