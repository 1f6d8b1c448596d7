// Package supervisor owns the transcoder child processes: HLS streams,
// recordings, the recording finalizer, and the shutdown drain.
package supervisor

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/camarr/camarr/internal/models"
)

// child is a spawned transcoder process.
type child interface {
	PID() int
	Terminate() error
	Wait() error
}

// spawner starts transcoder children. Injectable so the supervisor is
// testable without a transcoder binary.
type spawner interface {
	Spawn(bin string, args []string) (child, error)
}

type execChild struct {
	cmd *exec.Cmd
}

func (c *execChild) PID() int {
	return c.cmd.Process.Pid
}

func (c *execChild) Terminate() error {
	return c.cmd.Process.Kill()
}

func (c *execChild) Wait() error {
	return c.cmd.Wait()
}

type execSpawner struct{}

// Spawn starts the transcoder with stdout swallowed and the diagnostic
// stream inherited, so encode progress lands in the daemon's stderr.
func (execSpawner) Spawn(bin string, args []string) (child, error) {
	cmd := exec.Command(bin, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr
	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: starting %s: %w", models.ErrSpawnFailure, bin, err)
	}
	return &execChild{cmd: cmd}, nil
}

// stopChild terminates a child and reaps it. The unconditional kill-by-pid
// afterwards covers children that detached from the process handle.
func stopChild(c child) {
	pid := c.PID()
	_ = c.Terminate()
	_ = c.Wait()
	killByPID(pid)
}
