package services

import (
	"fmt"
	"sync"

	"beamshare/internal/core/domain"
	"beamshare/internal/core/ports"
)

// peerSession tracks the negotiation with one remote counterpart. Its own
// mutex serializes state transitions so distinct peers progress fully
// independently.
type peerSession struct {
	id string

	// attached closes once the media channel is set (or the session is
	// finished without one). Sessions are published before channel creation
	// completes, so remote descriptions wait on it.
	attached   chan struct{}
	attachOnce sync.Once

	mu            sync.Mutex
	state         domain.SessionState
	channel       ports.MediaChannel
	pending       []domain.ICECandidate
	remoteApplied bool
}

func newPeerSession(id string) *peerSession {
	return &peerSession{id: id, state: domain.SessionNew, attached: make(chan struct{})}
}

func (p *peerSession) setChannel(ch ports.MediaChannel) {
	p.mu.Lock()
	done := p.state.Terminal()
	if !done {
		p.channel = ch
	}
	p.mu.Unlock()
	p.attachOnce.Do(func() { close(p.attached) })
	if done {
		// Teardown won the race; the channel was never published.
		_ = ch.Close()
	}
}

func (p *peerSession) currentState() domain.SessionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// advance moves the session forward, never out of a terminal state.
func (p *peerSession) advance(next domain.SessionState) {
	p.mu.Lock()
	if !p.state.Terminal() {
		p.state = next
	}
	p.mu.Unlock()
}

// applyRemoteDescription applies the counterpart's description and drains
// candidates that arrived before it, in arrival order.
func (p *peerSession) applyRemoteDescription(desc domain.SessionDescription) error {
	<-p.attached

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Terminal() || p.channel == nil {
		return domain.ErrChannelClosed
	}
	if err := p.channel.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	p.remoteApplied = true
	for _, cand := range p.pending {
		if err := p.channel.AddCandidate(cand); err != nil {
			p.pending = nil
			return fmt.Errorf("apply buffered candidate: %w", err)
		}
	}
	p.pending = nil
	return nil
}

// addCandidate applies a remote candidate, or buffers it when the remote
// description has not been applied yet. Buffered candidates are never
// dropped.
func (p *peerSession) addCandidate(cand domain.ICECandidate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Terminal() {
		return domain.ErrChannelClosed
	}
	if !p.remoteApplied {
		p.pending = append(p.pending, cand)
		return nil
	}
	if err := p.channel.AddCandidate(cand); err != nil {
		return fmt.Errorf("add candidate: %w", err)
	}
	return nil
}

// finish marks the session terminal and releases the media channel. Safe to
// call repeatedly.
func (p *peerSession) finish(final domain.SessionState) {
	p.mu.Lock()
	alreadyDone := p.state.Terminal()
	if !alreadyDone {
		p.state = final
	}
	ch := p.channel
	p.pending = nil
	p.mu.Unlock()

	// Release anyone still waiting for channel attachment.
	p.attachOnce.Do(func() { close(p.attached) })

	if !alreadyDone && ch != nil {
		// Teardown is best effort; the caller logs failures.
		_ = ch.Close()
	}
}
