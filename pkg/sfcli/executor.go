// Package sfcli invokes the Salesforce CLI binary and parses its JSON
// output, enriching failures with stdout/stderr context (spec §4.7).
package sfcli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
)

// TempFileRetention is how long a temp file is kept before the sweep
// removes it (§3 Temp File).
const TempFileRetention = 7 * 24 * time.Hour

// maxOutputBytes bounds the combined stdout the executor will buffer
// from a single CLI invocation.
const maxOutputBytes = 100 * 1024 * 1024

// tailBytes is how much of stdout/stderr to keep in an error message.
const tailBytes = 4096

// Executor spawns the `sf` CLI binary in a fixed working directory.
type Executor struct {
	binary string
	dir    string
}

// New creates an Executor. binary defaults to "sf" if empty.
func New(binary, dir string) *Executor {
	if binary == "" {
		binary = "sf"
	}
	return &Executor{binary: binary, dir: dir}
}

// Result is the outcome of a CLI invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes `sf <args...>` and returns the raw result. The command
// runs with the parent's environment and no extra process attributes;
// callers needing JSON should use RunJSON.
func (e *Executor) Run(ctx context.Context, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Dir = e.dir
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{buf: &stdout, limit: maxOutputBytes}
	cmd.Stderr = &limitedWriter{buf: &stderr, limit: maxOutputBytes}

	runErr := cmd.Run()

	result := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runErr != nil {
		if ctx.Err() != nil {
			return result, sferrors.Wrap(sferrors.KindCancelled, ctx.Err(), "cli invocation cancelled")
		}
		if result.Stdout == "" {
			return result, sferrors.Newf(sferrors.KindCLI, "sf %s failed: %s (stderr tail: %s)",
				strings.Join(args, " "), runErr, tail(result.Stderr))
		}
		// Non-zero exit with stdout present: the CLI routinely emits
		// structured JSON errors on stdout, so the caller may still be
		// able to parse a useful error out of it (§4.7).
	}

	return result, nil
}

// RunJSON executes `sf <args...> --json` and decodes stdout into out.
// It prefers stdout over the exit code: the CLI emits JSON error bodies
// on stdout even on failure, so decode is attempted regardless of exit
// status, falling through to a CliError only when stdout is unparseable.
func (e *Executor) RunJSON(ctx context.Context, out any, args ...string) error {
	args = append(append([]string{}, args...), "--json")
	result, err := e.Run(ctx, args...)
	if err != nil {
		return err
	}

	if decErr := json.Unmarshal([]byte(result.Stdout), out); decErr != nil {
		return sferrors.Newf(sferrors.KindCLI,
			"sf %s: could not parse JSON output (exit %d): %s (stdout tail: %s, stderr tail: %s)",
			strings.Join(args, " "), result.ExitCode, decErr, tail(result.Stdout), tail(result.Stderr))
	}
	return nil
}

func tail(s string) string {
	if len(s) <= tailBytes {
		return s
	}
	return s[len(s)-tailBytes:]
}

// limitedWriter caps how much data is retained from a pipe without
// failing the write the child process makes.
type limitedWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.buf.Len() < w.limit {
		remaining := w.limit - w.buf.Len()
		if remaining > len(p) {
			remaining = len(p)
		}
		w.buf.Write(p[:remaining])
	}
	return len(p), nil
}

// QuoteArg safe-quotes a user-supplied string for inclusion in a CLI
// argument list. Since args are passed to exec.Command as a slice (never
// through a shell), this is defense in depth against CLI flags that
// themselves re-interpret quoting, not shell escaping.
func QuoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"$`\\") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// OrgDisplay is the shape of `sf org display --json`'s data field.
type OrgDisplay struct {
	Alias       string `json:"alias"`
	Username    string `json:"username"`
	InstanceURL string `json:"instanceUrl"`
	AccessToken string `json:"accessToken"`
	APIVersion  string `json:"apiVersion"`
	ID          string `json:"id"`
}

// orgDisplayEnvelope is the CLI's top-level --json response shape.
type orgDisplayEnvelope struct {
	Status int        `json:"status"`
	Result OrgDisplay `json:"result"`
}

// DisplayOrg runs `sf org display --json` and returns the org identity.
func (e *Executor) DisplayOrg(ctx context.Context) (*OrgDisplay, error) {
	var envelope orgDisplayEnvelope
	if err := e.RunJSON(ctx, &envelope, "org", "display"); err != nil {
		return nil, err
	}
	if envelope.Result.Username == "" || envelope.Result.Username == "unknown" {
		return nil, sferrors.New(sferrors.KindAuth, "no valid org identity returned by sf org display")
	}
	return &envelope.Result, nil
}

// RefreshAccessToken re-invokes org display to obtain a fresh access
// token for the current default org (§4.3 token refresh).
func (e *Executor) RefreshAccessToken(ctx context.Context) (string, error) {
	display, err := e.DisplayOrg(ctx)
	if err != nil {
		return "", err
	}
	return display.AccessToken, nil
}

// WriteTempFile writes body to a new file under <workspace>/tmp/ and
// returns its path. Used for anonymous Apex bodies before invoking the
// CLI (§3 Temp File, §4.8).
func WriteTempFile(workspace, pattern, body string) (string, error) {
	dir := workspace + "/tmp"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", sferrors.Wrap(sferrors.KindInternal, err, "creating tmp directory")
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", sferrors.Wrap(sferrors.KindInternal, err, "creating temp file")
	}
	defer f.Close()
	if _, err := f.WriteString(body); err != nil {
		return "", sferrors.Wrap(sferrors.KindInternal, err, "writing temp file")
	}
	return f.Name(), nil
}

// RemoveTempFile deletes a temp file, ignoring a not-exist error.
func RemoveTempFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing temp file %s: %w", path, err)
	}
	return nil
}

// SweepTempFiles removes files under <workspace>/tmp/ older than
// TempFileRetention. It is idempotent and safe to call on every
// relevant operation (§3 Temp File).
func SweepTempFiles(workspace string) error {
	dir := filepath.Join(workspace, "tmp")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading tmp directory: %w", err)
	}

	cutoff := time.Now().Add(-TempFileRetention)
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, entry.Name()))
		}
	}
	return nil
}
