package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"beamshare/internal/core/domain"
	"beamshare/internal/core/services"
	signalinfra "beamshare/internal/infrastructure/signal"
	webrtcinfra "beamshare/internal/infrastructure/webrtc"

	"github.com/spf13/cobra"
)

var viewCmd = &cobra.Command{
	Use:   "view CODE",
	Short: "Join a sharing session by room code",
	Long: `Join a presenter's session. CODE is the six-digit room code shown on
the presenter's screen.

Examples:
  beamshare view 123456
  beamshare view 123456 --relay-url wss://relay.example.com/ws`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runView(args[0])
	},
}

func runView(code string) error {
	log := newLogger()

	engine := webrtcinfra.NewEngine(iceServers(), log)

	session := services.NewViewerSession(services.SessionConfig{
		RelayURL:   flagRelayURL,
		Dialer:     signalinfra.NewDialer(log),
		Engine:     engine,
		Logger:     log,
		OnSnapshot: printSnapshot(domain.RoleViewer),
	})

	if err := session.StartViewing(context.Background(), code); err != nil {
		return err
	}
	defer session.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("Leaving session...")
	return nil
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
