// Package executor runs commands on the NIM master and on remote VIOS
// partitions through the NIM c_rsh transport.
package executor

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultRSHPath is where NIM installs its remote shell method.
const DefaultRSHPath = "/usr/lpp/bos.sysmgt/nim/methods/c_rsh"

// rcMarker recovers the trailing exit-code marker appended to every
// remote command. c_rsh reports its own transport status, not the remote
// command's, so the remote shell echoes "rc=N" as the last stdout line.
var rcMarker = regexp.MustCompile(`rc=(-?\d+)\s*$`)

// Result carries the outcome of one command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Combined returns stdout and stderr joined, for phrase matching on
// commands that interleave the two streams.
func (r Result) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	return r.Stdout + "\n" + r.Stderr
}

// TransportError means the command never produced an exit status: the
// local binary was missing, the context expired, or c_rsh itself
// failed before reaching the remote shell.
type TransportError struct {
	Host string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Host == "" {
		return fmt.Sprintf("command transport failed: %v", e.Err)
	}
	return fmt.Sprintf("command transport to %s failed: %v", e.Host, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CommandError means the command ran and exited non-zero.
type CommandError struct {
	Host   string
	Cmd    string
	Result Result
}

func (e *CommandError) Error() string {
	where := "local"
	if e.Host != "" {
		where = e.Host
	}
	return fmt.Sprintf("command failed on %s: %s: rc=%d: %s",
		where, e.Cmd, e.Result.ExitCode, strings.TrimSpace(e.Result.Stderr))
}

// Runner abstracts process execution so tests can script command
// outcomes without a shell.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) Result
}

// LocalRunner executes through os/exec. A command that cannot start is
// reported with exit code -1 and the launch error on stderr; callers
// distinguish that case by the missing rc marker or by exec semantics.
type LocalRunner struct{}

func (LocalRunner) Run(ctx context.Context, name string, args ...string) Result {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	switch e := err.(type) {
	case nil:
		res.ExitCode = 0
	case *exec.ExitError:
		res.ExitCode = e.ExitCode()
	default:
		res.ExitCode = -1
		if res.Stderr == "" {
			res.Stderr = err.Error()
		}
	}
	return res
}

// Executor runs local commands on the NIM master and remote commands on
// VIOS partitions via c_rsh.
type Executor struct {
	runner  Runner
	rshPath string
	logger  zerolog.Logger
}

// Option customizes an Executor.
type Option func(*Executor)

// WithRunner substitutes the process runner, used by tests.
func WithRunner(r Runner) Option {
	return func(e *Executor) { e.runner = r }
}

// WithRSHPath overrides the c_rsh binary location.
func WithRSHPath(path string) Option {
	return func(e *Executor) { e.rshPath = path }
}

// New creates an Executor.
func New(logger zerolog.Logger, opts ...Option) *Executor {
	e := &Executor{
		runner:  LocalRunner{},
		rshPath: DefaultRSHPath,
		logger:  logger.With().Str("component", "executor").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Local runs a command on the NIM master. argv[0] is the binary.
func (e *Executor) Local(ctx context.Context, argv ...string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, &TransportError{Err: fmt.Errorf("empty command")}
	}
	e.logger.Debug().Strs("argv", argv).Msg("running local command")

	res := e.runner.Run(ctx, argv[0], argv[1:]...)
	if err := ctx.Err(); err != nil {
		return res, &TransportError{Err: err}
	}
	if res.ExitCode == -1 {
		return res, &TransportError{Err: fmt.Errorf("%s: %s", argv[0], strings.TrimSpace(res.Stderr))}
	}
	if res.ExitCode != 0 {
		return res, &CommandError{Cmd: strings.Join(argv, " "), Result: res}
	}
	return res, nil
}

// Remote runs a shell command on a VIOS through c_rsh. The command is
// suffixed with an exit-code echo so the remote status survives the
// transport; the marker is stripped from the returned stdout.
func (e *Executor) Remote(ctx context.Context, host, command string) (Result, error) {
	wrapped := command + "; echo rc=$?"
	e.logger.Debug().Str("host", host).Str("cmd", command).Msg("running remote command")

	res := e.runner.Run(ctx, e.rshPath, host, wrapped)
	if err := ctx.Err(); err != nil {
		return res, &TransportError{Host: host, Err: err}
	}
	if res.ExitCode != 0 {
		return res, &TransportError{Host: host, Err: fmt.Errorf("c_rsh rc=%d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))}
	}

	// Some remote shells swallow the trailing echo. The transport
	// already reported rc=0 at this point, so the command is treated as
	// successful with its raw output.
	m := rcMarker.FindStringSubmatch(res.Stdout)
	if m == nil {
		return res, nil
	}
	rc, err := strconv.Atoi(m[1])
	if err != nil {
		return res, &TransportError{Host: host, Err: fmt.Errorf("bad exit-code marker %q", m[1])}
	}
	res.ExitCode = rc
	res.Stdout = rcMarker.ReplaceAllString(res.Stdout, "")
	if rc != 0 {
		return res, &CommandError{Host: host, Cmd: command, Result: res}
	}
	return res, nil
}
