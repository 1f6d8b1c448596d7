package supervisor

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// playlistTimeout bounds how long a stream may take to produce its first
// playlist before the watcher gives up and logs a warning.
const playlistTimeout = 30 * time.Second

// watchPlaylist waits for index.m3u8 to appear in a freshly started
// stream's segment directory and logs the startup-to-live latency. Purely
// observational; the stream runs either way.
func (s *Supervisor) watchPlaylist(dir string, cameraID int64, started time.Time) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Debug("playlist watcher unavailable", slog.String("error", err.Error()))
		return
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return
	}

	playlist := filepath.Join(dir, "index.m3u8")
	// The playlist may have appeared between spawn and watcher setup.
	if _, err := os.Stat(playlist); err == nil {
		s.logStreamLive(cameraID, started)
		return
	}

	timeout := time.NewTimer(playlistTimeout)
	defer timeout.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name == playlist && (event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write)) {
				s.logStreamLive(cameraID, started)
				return
			}
		case <-watcher.Errors:
			return
		case <-timeout.C:
			s.logger.Warn("stream produced no playlist",
				slog.Int64("camera_id", cameraID),
				slog.Duration("waited", playlistTimeout),
			)
			return
		}
	}
}

func (s *Supervisor) logStreamLive(cameraID int64, started time.Time) {
	s.logger.Info("stream live",
		slog.Int64("camera_id", cameraID),
		slog.Duration("latency", time.Since(started)),
	)
}
