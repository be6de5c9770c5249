package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrConvert marks failures of the external surface-to-solid converter.
var ErrConvert = errors.New("pipeline: solid conversion failed")

// Converter invokes an external CAD tool that turns a surface STL into a
// solid STL. The handoff is purely file-based: the configured command is
// run with the input and output paths appended as its last two arguments
// and must exit zero after writing the output file.
type Converter struct {
	// Command is the executable to run. Empty disables conversion; the
	// surface mesh then stands in for the solid directly.
	Command string `json:"command"`
	// Args precede the input and output path arguments.
	Args []string `json:"args,omitempty"`
}

// Enabled reports whether a converter command is configured.
func (c Converter) Enabled() bool { return c.Command != "" }

// Run converts input into output, blocking until the tool exits. A
// non-zero exit is fatal for the sample.
func (c Converter) Run(ctx context.Context, input, output string) error {
	if !c.Enabled() {
		return fmt.Errorf("%w: no converter command configured", ErrConvert)
	}
	args := append(append([]string{}, c.Args...), input, output)
	cmd := exec.CommandContext(ctx, c.Command, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %v (output: %s)", ErrConvert, c.Command, err,
			truncate(out.String(), 512))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
