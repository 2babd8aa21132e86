package domain

// ConnectionContext tracks the identity, role and room binding of one live
// signaling connection. The role transition table is enforced here rather
// than in the message handlers: Unbound -> Host or Unbound -> Viewer, once,
// with no way back.
type ConnectionContext struct {
	ID       ConnectionID
	Role     Role
	RoomCode RoomCode
	ViewerID ViewerID
}

func NewConnectionContext(id ConnectionID) *ConnectionContext {
	return &ConnectionContext{ID: id, Role: RoleUnbound}
}

// BindHost transitions the context to the host role.
func (c *ConnectionContext) BindHost(code RoomCode) error {
	if c.Role != RoleUnbound {
		return ErrAlreadyRegistered
	}
	c.Role = RoleHost
	c.RoomCode = code
	return nil
}

// BindViewer transitions the context to the viewer role.
func (c *ConnectionContext) BindViewer(code RoomCode, viewerID ViewerID) error {
	if c.Role != RoleUnbound {
		return ErrAlreadyInRoom
	}
	c.Role = RoleViewer
	c.RoomCode = code
	c.ViewerID = viewerID
	return nil
}
