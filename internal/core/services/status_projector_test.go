package services

import (
	"testing"

	"beamshare/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func TestProjectHostStatus(t *testing.T) {
	tests := []struct {
		name         string
		phase        HostPhase
		readyViewers int
		want         domain.Status
	}{
		{"idle", HostPhaseIdle, 0, domain.StatusIdle},
		{"acquiring capture", HostPhaseAcquiring, 0, domain.StatusRequestingPermission},
		{"dialing relay", HostPhaseDialing, 0, domain.StatusConnecting},
		{"registered, no viewers", HostPhaseRegistered, 0, domain.StatusWaiting},
		{"registered, one viewer live", HostPhaseRegistered, 1, domain.StatusLive},
		{"registered, several viewers live", HostPhaseRegistered, 3, domain.StatusLive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProjectHostStatus(tt.phase, tt.readyViewers))
		})
	}
}

func TestProjectHostStatus_LastViewerLeaving(t *testing.T) {
	// Live reverts to Waiting when the ready set drains, without any
	// intermediate state.
	assert.Equal(t, domain.StatusLive, ProjectHostStatus(HostPhaseRegistered, 1))
	assert.Equal(t, domain.StatusWaiting, ProjectHostStatus(HostPhaseRegistered, 0))
}

func TestProjectViewerStatus(t *testing.T) {
	tests := []struct {
		name  string
		phase ViewerPhase
		want  domain.Status
	}{
		{"idle", ViewerPhaseIdle, domain.StatusIdle},
		{"dialing relay", ViewerPhaseDialing, domain.StatusConnecting},
		{"joined, awaiting media", ViewerPhaseJoined, domain.StatusWaiting},
		{"watching", ViewerPhaseWatching, domain.StatusWatching},
		{"session over", ViewerPhaseEnded, domain.StatusEnded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProjectViewerStatus(tt.phase))
		})
	}
}
