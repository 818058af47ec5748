package main

import "time"

// GlobalFlags holds flags for the serve command.
type GlobalFlags struct {
	ConfigPath string
}

// ClientFlags holds API connection flags shared by all client subcommands.
type ClientFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

// StartFlags holds flags describing a process to launch.
type StartFlags struct {
	Path    string
	Args    []string
	WorkDir string
	Env     []string // KEY=VALUE entries
	Name    string
}

// CaptureFlags holds flags for the capture command.
type CaptureFlags struct {
	Lines int
}

// RunFlags holds flags for the bounded run command.
type RunFlags struct {
	Timeout time.Duration
}
