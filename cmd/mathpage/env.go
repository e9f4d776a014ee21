package main

import (
	"io"
	"os"
	"time"

	"github.com/alnah/go-mathpage"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, and the engine factory.
type Environment struct {
	Now    func() time.Time
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// NewEngine creates typesetting engines. Nil means MathJax in headless
	// Chrome, configured from the engine section of the config.
	NewEngine mathpage.EngineFactory
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:    time.Now,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}
