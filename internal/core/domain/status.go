package domain

// Status is the user-facing session status shown by the presentation layer.
// Hosts move Idle -> RequestingPermission -> Connecting -> Waiting <-> Live;
// viewers move Idle -> Connecting -> Waiting -> Watching -> Ended.
type Status string

const (
	StatusIdle                 Status = "idle"
	StatusRequestingPermission Status = "requesting-permission"
	StatusConnecting           Status = "connecting"
	StatusWaiting              Status = "waiting"
	StatusLive                 Status = "live"
	StatusWatching             Status = "watching"
	StatusEnded                Status = "ended"
)

// Snapshot is the read-only projection handed to the presentation layer.
type Snapshot struct {
	Status      Status
	RoomCode    RoomCode
	ViewerCount int
	Err         string
}
