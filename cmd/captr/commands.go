package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/captr"
)

func createRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "captr",
		Short:         "Capture output from background processes while they run",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func createStartCommand(cf *ClientFlags, sf *StartFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a background process with output capture",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := launchSpecFromFlags(sf)
			if err != nil {
				return err
			}
			res, err := newClient(cf).Start(spec)
			if err != nil {
				return err
			}
			fmt.Printf("Started background process: %s\n", res.Name)
			fmt.Printf("Process ID: %d\n", res.PID)
			fmt.Printf("Command: %s\n", strings.Join(res.Command, " "))
			fmt.Printf("Working directory: %s\n", res.WorkDir)
			fmt.Printf("Use 'captr capture --pid %d' to get output\n", res.PID)
			return nil
		},
	}
	addStartFlags(cmd, sf)
	return cmd
}

func createCaptureCommand(cf *ClientFlags, capf *CaptureFlags) *cobra.Command {
	var pid int
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture recent output from a tracked process",
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := newClient(cf).Capture(pid, capf.Lines)
			if err != nil {
				return err
			}
			printCapture(view)
			return nil
		},
	}
	cmd.Flags().IntVar(&pid, "pid", 0, "process id (required)")
	cmd.Flags().IntVar(&capf.Lines, "lines", 0, "number of recent lines per stream (default 50, max 1000)")
	_ = cmd.MarkFlagRequired("pid")
	return cmd
}

func createStopCommand(cf *ClientFlags) *cobra.Command {
	var pid int
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a tracked process (graceful, then forced)",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := newClient(cf).Stop(pid)
			if err != nil {
				return err
			}
			if res.AlreadyCompleted {
				fmt.Printf("Process %d (%s) has already completed with exit code: %d\n", res.PID, res.Name, res.ExitCode)
			} else {
				fmt.Printf("Process %d (%s) has been terminated\nExit code: %d\n", res.PID, res.Name, res.ExitCode)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&pid, "pid", 0, "process id (required)")
	_ = cmd.MarkFlagRequired("pid")
	return cmd
}

func createListCommand(cf *ClientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tracked processes",
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := newClient(cf).List()
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("No background processes currently tracked.")
				return nil
			}
			for _, s := range summaries {
				fmt.Printf("PID %d: %s\n", s.PID, s.Name)
				fmt.Printf("  Status: %s\n", livenessString(s.Alive, s.ExitCode))
				fmt.Printf("  Runtime: %.1fs\n", s.Runtime.Seconds())
				fmt.Printf("  Command: %s\n", s.Command)
				fmt.Printf("  Output lines: %d stdout, %d stderr\n", s.StdoutTotal, s.StderrTotal)
			}
			return nil
		},
	}
}

func createStatusCommand(cf *ClientFlags) *cobra.Command {
	var pid int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show detailed status for a tracked process",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newClient(cf).Status(pid)
			if err != nil {
				return err
			}
			fmt.Printf("Process Details for PID %d:\n", st.PID)
			fmt.Printf("Name: %s\n", st.Name)
			fmt.Printf("Status: %s\n", livenessString(st.Alive, st.ExitCode))
			fmt.Printf("Command: %s\n", strings.Join(st.Command, " "))
			fmt.Printf("Working Directory: %s\n", st.WorkDir)
			fmt.Printf("Started at: %s\n", st.StartedAt.Format("2006-01-02 15:04:05"))
			if !st.CompletedAt.IsZero() {
				fmt.Printf("Completed at: %s\n", st.CompletedAt.Format("2006-01-02 15:04:05"))
			}
			fmt.Printf("Runtime: %.1f seconds\n", st.Runtime().Seconds())
			fmt.Printf("Total output lines: %d stdout, %d stderr\n", st.StdoutLines, st.StderrLines)
			fmt.Printf("Time since last output: %.1f seconds\n", st.IdleFor().Seconds())
			if st.CaptureErr != "" {
				fmt.Printf("Capture error: %s\n", st.CaptureErr)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&pid, "pid", 0, "process id (required)")
	_ = cmd.MarkFlagRequired("pid")
	return cmd
}

func createRunCommand(cf *ClientFlags, sf *StartFlags, rf *RunFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a process with a bounded wait; report partial output at the checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := launchSpecFromFlags(sf)
			if err != nil {
				return err
			}
			out, err := newClient(cf).Run(spec, rf.Timeout)
			if err != nil {
				return err
			}
			printOutcome(out)
			return nil
		},
	}
	addStartFlags(cmd, sf)
	cmd.Flags().DurationVar(&rf.Timeout, "timeout", 30*time.Second, "maximum time the caller is willing to wait")
	return cmd
}

func createCleanupCommand(cf *ClientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove records of processes that exited and finished capturing",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := newClient(cf).Cleanup()
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d completed process record(s)\n", n)
			return nil
		},
	}
}

func newClient(cf *ClientFlags) *APIClient {
	return NewAPIClient(cf.APIUrl, cf.APITimeout)
}

func addStartFlags(cmd *cobra.Command, sf *StartFlags) {
	cmd.Flags().StringVar(&sf.Path, "path", "", "absolute path to the executable (required)")
	cmd.Flags().StringArrayVar(&sf.Args, "arg", nil, "command line argument (repeatable)")
	cmd.Flags().StringVar(&sf.WorkDir, "workdir", "", "working directory (defaults to the executable's directory)")
	cmd.Flags().StringArrayVar(&sf.Env, "env", nil, "extra environment variable KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&sf.Name, "name", "", "custom process name")
	_ = cmd.MarkFlagRequired("path")
}

func launchSpecFromFlags(sf *StartFlags) (captr.LaunchSpec, error) {
	env := make(map[string]string, len(sf.Env))
	for _, kv := range sf.Env {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			return captr.LaunchSpec{}, fmt.Errorf("invalid --env %q, must be KEY=VALUE", kv)
		}
		env[kv[:i]] = kv[i+1:]
	}
	return captr.LaunchSpec{
		Path:    sf.Path,
		Args:    sf.Args,
		WorkDir: sf.WorkDir,
		Env:     env,
		Name:    sf.Name,
	}, nil
}

func livenessString(alive bool, exitCode *int) string {
	if alive {
		return "Running"
	}
	if exitCode != nil {
		return "Completed (exit code: " + strconv.Itoa(*exitCode) + ")"
	}
	return "Exited (reaping)"
}

func printCapture(v captr.CaptureView) {
	fmt.Printf("Process: %s (PID: %d)\n", v.Name, v.PID)
	fmt.Printf("Status: %s\n", livenessString(v.Alive, v.ExitCode))
	fmt.Printf("Runtime: %.1f seconds\n", v.Runtime.Seconds())
	fmt.Printf("Time since last output: %.1f seconds\n", v.IdleFor.Seconds())
	fmt.Printf("Total stdout lines: %d\n", v.StdoutTotal)
	fmt.Printf("Total stderr lines: %d\n\n", v.StderrTotal)
	if len(v.Stdout) > 0 {
		fmt.Printf("Recent STDOUT (last %d lines):\n", len(v.Stdout))
		printLines(v.Stdout)
	}
	if len(v.Stderr) > 0 {
		fmt.Printf("Recent STDERR (last %d lines):\n", len(v.Stderr))
		printLines(v.Stderr)
	}
	if len(v.Stdout) == 0 && len(v.Stderr) == 0 {
		fmt.Println("No output captured yet.")
	}
	if v.CaptureErr != "" {
		fmt.Printf("Capture error: %s\n", v.CaptureErr)
	}
}

func printOutcome(o captr.Outcome) {
	switch o.Kind {
	case captr.OutcomeCompleted:
		fmt.Printf("Process completed successfully (exit code: %d)\n", *o.ExitCode)
	case captr.OutcomeFailed:
		fmt.Printf("Process failed with exit code: %d\n", *o.ExitCode)
	case captr.OutcomePartialTimeout:
		fmt.Printf("Process timed out and was terminated; partial output below\n")
	case captr.OutcomeStillRunning:
		fmt.Printf("Process still running after checkpoint (PID: %d); partial output below\n", o.PID)
	}
	if len(o.Stdout) > 0 {
		fmt.Println("STDOUT:")
		printLines(o.Stdout)
	}
	if len(o.Stderr) > 0 {
		fmt.Println("STDERR:")
		printLines(o.Stderr)
	}
}

func printLines(lines []captr.Line) {
	for _, l := range lines {
		fmt.Printf("[%s] %s\n", l.At.Format("15:04:05"), l.Text)
	}
}
