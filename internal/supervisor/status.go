package supervisor

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
	"github.com/shirou/gopsutil/v4/process"
)

// StreamStatus describes one live stream: playlist state read from disk
// and resource usage read from the child process.
type StreamStatus struct {
	CameraID       int64   `json:"camera_id"`
	PlaylistPath   string  `json:"playlist_path"`
	Live           bool    `json:"live"`
	SegmentCount   int     `json:"segment_count"`
	TargetDuration int     `json:"target_duration"`
	PID            int     `json:"pid"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemoryRSS      uint64  `json:"memory_rss"`
}

// StreamStatuses snapshots every active stream. A stream whose playlist
// has not appeared yet reports Live=false with zero segment counts.
func (s *Supervisor) StreamStatuses() []StreamStatus {
	s.streamsMu.Lock()
	children := make(map[int64]child, len(s.streams))
	for id, ch := range s.streams {
		children[id] = ch
	}
	s.streamsMu.Unlock()

	statuses := make([]StreamStatus, 0, len(children))
	for _, id := range sortedKeys(children) {
		st := StreamStatus{
			CameraID:     id,
			PlaylistPath: PlaylistPath(id),
		}
		if ch := children[id]; ch != nil {
			st.PID = ch.PID()
			st.CPUPercent, st.MemoryRSS = childStats(ch.PID())
		}
		s.fillPlaylistStats(&st)
		statuses = append(statuses, st)
	}
	return statuses
}

func (s *Supervisor) fillPlaylistStats(st *StreamStatus) {
	path := filepath.Join(s.storage.StreamPath(), strconv.FormatInt(st.CameraID, 10), "index.m3u8")
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	pl, err := playlist.Unmarshal(data)
	if err != nil {
		s.logger.Debug("unparseable playlist",
			slog.Int64("camera_id", st.CameraID),
			slog.String("error", err.Error()),
		)
		return
	}
	media, ok := pl.(*playlist.Media)
	if !ok {
		return
	}

	st.Live = len(media.Segments) > 0
	st.SegmentCount = len(media.Segments)
	st.TargetDuration = media.TargetDuration
}

// childStats reads CPU and resident memory for a transcoder child. Zeroes
// on any failure; the child may have just exited.
func childStats(pid int) (float64, uint64) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return 0, 0
	}
	cpu, _ := proc.CPUPercent()
	var rss uint64
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		rss = mem.RSS
	}
	return cpu, rss
}

func sortedKeys(m map[int64]child) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
