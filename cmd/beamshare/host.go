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

var flagVideo string

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Start sharing and print the room code",
	Long: `Start a sharing session. The relay assigns a six-digit room code that
viewers use to join. Video is read from an IVF file (VP8) and looped.

Examples:
  beamshare host --video screen.ivf
  beamshare host --video screen.ivf --relay-url wss://relay.example.com/ws`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHost()
	},
}

func runHost() error {
	log := newLogger()

	engine := webrtcinfra.NewEngine(iceServers(), log)
	source := webrtcinfra.NewFileSource(flagVideo, log)

	session := services.NewHostSession(services.SessionConfig{
		RelayURL:   flagRelayURL,
		Dialer:     signalinfra.NewDialer(log),
		Engine:     engine,
		Source:     source,
		Logger:     log,
		OnSnapshot: printSnapshot(domain.RoleHost),
	})

	if err := session.StartSharing(context.Background()); err != nil {
		return err
	}
	defer session.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("Stopping session...")
	return nil
}

// printSnapshot renders status transitions for the terminal. The snapshot
// callback fires on every change, so repeated states are filtered here.
func printSnapshot(role domain.Role) func(domain.Snapshot) {
	var last domain.Snapshot
	return func(snap domain.Snapshot) {
		if snap == last {
			return
		}
		last = snap

		switch {
		case snap.Err != "":
			fmt.Printf("[%s] %s (%s)\n", role, snap.Status, snap.Err)
		case role == domain.RoleHost && snap.Status == domain.StatusWaiting:
			fmt.Printf("[%s] waiting for viewers, room code: %s\n", role, snap.RoomCode)
		case role == domain.RoleHost && snap.Status == domain.StatusLive:
			fmt.Printf("[%s] live, %d viewer(s) connected\n", role, snap.ViewerCount)
		default:
			fmt.Printf("[%s] %s\n", role, snap.Status)
		}
	}
}

func init() {
	rootCmd.AddCommand(hostCmd)

	hostCmd.Flags().StringVar(&flagVideo, "video", "", "path to a VP8 IVF file to stream")
	hostCmd.MarkFlagRequired("video")
}
