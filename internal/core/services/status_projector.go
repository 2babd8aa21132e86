package services

import "beamshare/internal/core/domain"

// HostPhase is the local lifecycle of a host session, independent of any
// single peer negotiation.
type HostPhase int

const (
	HostPhaseIdle HostPhase = iota
	HostPhaseAcquiring
	HostPhaseDialing
	HostPhaseRegistered
)

// ViewerPhase is the local lifecycle of a viewer session.
type ViewerPhase int

const (
	ViewerPhaseIdle ViewerPhase = iota
	ViewerPhaseDialing
	ViewerPhaseJoined
	ViewerPhaseWatching
	ViewerPhaseEnded
)

// ProjectHostStatus derives the user-facing host status. It is a pure
// function of the session phase and the ready-set size: Live exactly while
// at least one viewer's channel is connected.
func ProjectHostStatus(phase HostPhase, readyViewers int) domain.Status {
	switch phase {
	case HostPhaseAcquiring:
		return domain.StatusRequestingPermission
	case HostPhaseDialing:
		return domain.StatusConnecting
	case HostPhaseRegistered:
		if readyViewers > 0 {
			return domain.StatusLive
		}
		return domain.StatusWaiting
	default:
		return domain.StatusIdle
	}
}

// ProjectViewerStatus derives the user-facing viewer status.
func ProjectViewerStatus(phase ViewerPhase) domain.Status {
	switch phase {
	case ViewerPhaseDialing:
		return domain.StatusConnecting
	case ViewerPhaseJoined:
		return domain.StatusWaiting
	case ViewerPhaseWatching:
		return domain.StatusWatching
	case ViewerPhaseEnded:
		return domain.StatusEnded
	default:
		return domain.StatusIdle
	}
}
