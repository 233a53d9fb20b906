// Package ocr reads the numeric challenge image with the tesseract CLI.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Timeout bounds one recognition.
const Timeout = 30 * time.Second

// DefaultBinary is looked up on PATH when no explicit path is configured.
const DefaultBinary = "tesseract"

// Tesseract recognizes digits by piping the image through tesseract in
// single-line mode with a digits-only whitelist.
type Tesseract struct {
	Binary  string
	Timeout time.Duration
}

// New returns a Tesseract using binary, or DefaultBinary when empty.
func New(binary string) *Tesseract {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Tesseract{Binary: binary, Timeout: Timeout}
}

// Args returns the tesseract command line arguments.
func (t *Tesseract) Args() []string {
	return []string{"stdin", "stdout", "--psm", "7", "-c", "tessedit_char_whitelist=0123456789"}
}

// RecognizeDigits runs tesseract on image and returns its trimmed output.
func (t *Tesseract) RecognizeDigits(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", errors.New("empty challenge image")
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.Binary, t.Args()...)
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("tesseract: %w", ctx.Err())
		}
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Available reports whether the binary can be found.
func (t *Tesseract) Available() error {
	_, err := exec.LookPath(t.Binary)
	return err
}
