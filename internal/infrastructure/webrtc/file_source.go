package webrtc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"beamshare/internal/core/ports"

	"github.com/pion/webrtc/v3/pkg/media/ivfreader"
	"go.uber.org/zap"
)

// FileSource is a capture source that replays a VP8 IVF file in a loop. It
// stands in for a real screen grabber on platforms without one, and feeds
// the engine exactly the way a live capture would.
type FileSource struct {
	path   string
	logger *zap.SugaredLogger

	mu      sync.Mutex
	stop    chan struct{}
	started bool
}

func NewFileSource(path string, logger *zap.SugaredLogger) *FileSource {
	return &FileSource{path: path, logger: logger}
}

func (f *FileSource) Start(sink ports.MediaSink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil
	}

	// Probe the file up front so permission and format problems surface as
	// a start error instead of a silent dead stream.
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open capture file: %w", err)
	}
	if _, _, err := ivfreader.NewWith(file); err != nil {
		file.Close()
		return fmt.Errorf("parse ivf header: %w", err)
	}
	file.Close()

	f.stop = make(chan struct{})
	f.started = true
	go f.loop(sink, f.stop)
	return nil
}

func (f *FileSource) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return
	}
	close(f.stop)
	f.started = false
}

func (f *FileSource) loop(sink ports.MediaSink, stop chan struct{}) {
	for {
		if done := f.playOnce(sink, stop); done {
			return
		}
		select {
		case <-stop:
			return
		default:
		}
	}
}

func (f *FileSource) playOnce(sink ports.MediaSink, stop chan struct{}) bool {
	file, err := os.Open(f.path)
	if err != nil {
		f.logger.Errorw("capture file unavailable", "path", f.path, "error", err)
		return true
	}
	defer file.Close()

	ivf, header, err := ivfreader.NewWith(file)
	if err != nil {
		f.logger.Errorw("ivf header parse failed", "path", f.path, "error", err)
		return true
	}

	frameDuration := time.Millisecond *
		time.Duration(float64(header.TimebaseNumerator)/float64(header.TimebaseDenominator)*1000)
	if frameDuration <= 0 {
		frameDuration = 33 * time.Millisecond
	}

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		frame, _, err := ivf.ParseNextFrame()
		if errors.Is(err, io.EOF) {
			return false
		}
		if err != nil {
			f.logger.Errorw("ivf frame parse failed", "error", err)
			return true
		}
		if err := sink.WriteVideo(ports.MediaSample{Data: frame, Duration: frameDuration}); err != nil {
			f.logger.Warnw("video sample dropped", "error", err)
		}
		select {
		case <-stop:
			return true
		case <-ticker.C:
		}
	}
}
