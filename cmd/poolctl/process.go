package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newStartCmd() *cobra.Command {
	var daemonize bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pid, ok := readPID(); ok && processAlive(pid) {
				return fmt.Errorf("daemon already running (pid %d)", pid)
			}

			bin, err := poolDaemonBinary()
			if err != nil {
				return err
			}
			proc := exec.Command(bin)
			proc.Env = append(os.Environ(), "SOCKET_POOL_UNIX_PATH="+socketPath)
			if daemonize {
				proc.Stdin = nil
				proc.Stdout = nil
				proc.Stderr = nil
			} else {
				proc.Stdout = os.Stdout
				proc.Stderr = os.Stderr
			}
			if err := proc.Start(); err != nil {
				return fmt.Errorf("start daemon: %w", err)
			}
			if err := writePID(proc.Process.Pid); err != nil {
				fmt.Fprintf(os.Stderr, "poolctl: warning: failed to write pid file: %v\n", err)
			}
			fmt.Printf("daemon started (pid %d)\n", proc.Process.Pid)
			return nil
		},
	}
	cmd.Flags().BoolVar(&daemonize, "daemon", false, "detach stdio and run in the background")
	return cmd
}

func newStopCmd() *cobra.Command {
	var force bool
	var timeoutS int
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, ok := readPID()
			if !ok {
				return fmt.Errorf("no pid file at %s; is the daemon running?", pidFile)
			}
			sig := syscall.SIGTERM
			if force {
				sig = syscall.SIGKILL
			}
			if err := syscall.Kill(pid, sig); err != nil {
				return fmt.Errorf("signal pid %d: %w", pid, err)
			}

			deadline := time.Now().Add(time.Duration(timeoutS) * time.Second)
			for time.Now().Before(deadline) {
				if !processAlive(pid) {
					_ = os.Remove(pidFile)
					fmt.Println("daemon stopped")
					return nil
				}
				time.Sleep(200 * time.Millisecond)
			}
			return fmt.Errorf("daemon did not exit within %ds", timeoutS)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "send SIGKILL instead of SIGTERM")
	cmd.Flags().IntVar(&timeoutS, "timeout", 10, "seconds to wait for graceful exit")
	return cmd
}

func newRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pid, ok := readPID(); ok && processAlive(pid) {
				if err := newStopCmd().RunE(cmd, nil); err != nil {
					return err
				}
			}
			return newStartCmd().RunE(cmd, nil)
		},
	}
}

func poolDaemonBinary() (string, error) {
	if p, err := exec.LookPath("poold"); err == nil {
		return p, nil
	}
	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate poold binary: %w", err)
	}
	candidate := filepath.Join(filepath.Dir(self), "poold")
	if _, err := os.Stat(candidate); err != nil {
		return "", fmt.Errorf("poold binary not found next to poolctl (%s): %w", candidate, err)
	}
	return candidate, nil
}

func readPID() (int, bool) {
	body, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(string(body))
	if err != nil {
		return 0, false
	}
	return pid, true
}

func writePID(pid int) error {
	return os.WriteFile(pidFile, []byte(strconv.Itoa(pid)), 0644)
}

func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}
