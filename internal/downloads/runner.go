package downloads

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"fetcharr/internal/domain/command"
	"fetcharr/internal/domain/consts"
	"fetcharr/internal/models"
	"fetcharr/internal/utils/logging"
)

// Runner spawns one external download process per job.
type Runner interface {
	Start(ctx context.Context, job models.Job) (models.Process, error)
}

// Options configures the yt-dlp wrapper.
type Options struct {
	// Binary is the yt-dlp executable. Default: "yt-dlp".
	Binary string

	// ExtraArgs are inserted before every generated argument list.
	ExtraArgs []string

	// MetadataTimeout bounds a metadata lookup. Default: 60s.
	MetadataTimeout time.Duration

	// TerminateGrace is how long a terminated process may take before it is killed. Default: 5s.
	TerminateGrace time.Duration
}

// Ytdlp runs yt-dlp for downloads, metadata lookups and version checks.
type Ytdlp struct {
	opts Options
}

// NewYtdlp returns a yt-dlp wrapper with defaults applied.
func NewYtdlp(opts Options) *Ytdlp {
	if opts.Binary == "" {
		opts.Binary = command.YTDLP
	}
	if opts.MetadataTimeout <= 0 {
		opts.MetadataTimeout = consts.DefaultMetadataTimeout
	}
	if opts.TerminateGrace <= 0 {
		opts.TerminateGrace = consts.DefaultTerminateGrace
	}
	return &Ytdlp{opts: opts}
}

// BuildArgs builds the download argument vector for a job.
func (y *Ytdlp) BuildArgs(job models.Job) []string {
	args := make([]string, 0, 16)
	args = append(args, y.opts.ExtraArgs...)

	// One progress line per update instead of carriage-return redraws
	args = append(args, command.Newline)

	switch job.Format {
	case consts.FormatAudio:
		args = append(args,
			command.FormatSel, command.BestAudio,
			command.ExtractAudio,
			command.AudioFormat, consts.ExtAudio)
	default:
		args = append(args, command.FormatSel, command.BestMP4)
	}

	args = append(args, command.Output, job.OutputPath)

	// Add target URL [ MUST GO LAST !! ]
	return append(args, job.URL)
}

// Start spawns yt-dlp for the job.
//
// Cancelling ctx terminates the process the same way Terminate does.
func (y *Ytdlp) Start(ctx context.Context, job models.Job) (models.Process, error) {
	cmd := exec.CommandContext(ctx, y.opts.Binary, y.BuildArgs(job)...)
	setProcGroup(cmd)
	cmd.Cancel = func() error {
		return terminateGroup(cmd)
	}
	cmd.WaitDelay = y.opts.TerminateGrace

	// Merge stdout and stderr into one pipe
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: pipe error: %v", ErrProcessSpawn, err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	logging.D(1, "Built download command for job %q:\n%v", job.ID, cmd.String())

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("%w: %v", ErrProcessSpawn, err)
	}
	// The child holds its own copy
	pw.Close()

	p := &ytdlpProcess{
		cmd:   cmd,
		lines: make(chan string, 100),
		done:  make(chan struct{}),
		grace: y.opts.TerminateGrace,
	}
	go p.run(pr)
	return p, nil
}

// Version returns the yt-dlp version string.
func (y *Ytdlp) Version(ctx context.Context) (string, error) {
	args := append(append([]string{}, y.opts.ExtraArgs...), command.Version)
	out, err := exec.CommandContext(ctx, y.opts.Binary, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s not usable: %w", y.opts.Binary, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ytdlpProcess is a started yt-dlp process.
type ytdlpProcess struct {
	cmd   *exec.Cmd
	lines chan string
	done  chan struct{}
	grace time.Duration

	termOnce sync.Once
	exitCode int
	waitErr  error
}

// run feeds lines until the stream ends, then reaps the process.
func (p *ytdlpProcess) run(pr *os.File) {
	defer close(p.done)

	splitter := &lineSplitter{max: maxLineBytes}
	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, maxLineBytes), 16*maxLineBytes)
	scanner.Split(splitter.split)
	for scanner.Scan() {
		p.lines <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		logging.D(1, "Output scan for PID %d ended: %v", p.PID(), err)
	}
	close(p.lines)
	pr.Close()

	p.exitCode, p.waitErr = exitStatus(p.cmd.Wait())
}

// Lines returns the merged output stream.
func (p *ytdlpProcess) Lines() <-chan string {
	return p.lines
}

// Wait blocks until the process has exited.
//
// The Lines stream must be drained for Wait to return.
func (p *ytdlpProcess) Wait() (int, error) {
	<-p.done
	return p.exitCode, p.waitErr
}

// Terminate asks the process group to stop and kills it after the grace period.
func (p *ytdlpProcess) Terminate() error {
	var err error
	p.termOnce.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}

		if err = terminateGroup(p.cmd); err != nil {
			if errors.Is(err, os.ErrProcessDone) {
				err = nil
			}
			return
		}
		time.AfterFunc(p.grace, func() {
			select {
			case <-p.done:
			default:
				logging.W("Process %d ignored termination, killing", p.PID())
				if kerr := killGroup(p.cmd); kerr != nil {
					logging.E("Failed to kill process %d: %v", p.PID(), kerr)
				}
			}
		})
	})
	return err
}

// PID returns the process ID.
func (p *ytdlpProcess) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// exitStatus converts a Wait error into an exit code.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// maxLineBytes caps one output line. Longer lines are skipped.
const maxLineBytes = 64 * 1024

// lineSplitter splits like scanLinesCR but drops lines that outgrow max
// instead of ending the scan, so the child's output is always drained.
type lineSplitter struct {
	max      int
	skipping bool
}

func (l *lineSplitter) split(data []byte, atEOF bool) (int, []byte, error) {
	if l.skipping {
		i := bytes.IndexAny(data, "\r\n")
		if i < 0 {
			return len(data), nil, nil
		}
		l.skipping = false
		advance := i + 1
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			advance++
		}
		return advance, nil, nil
	}

	advance, token, err := scanLinesCR(data, atEOF)
	if advance == 0 && len(data) >= l.max {
		l.skipping = true
		return len(data), nil, nil
	}
	return advance, token, err
}

// scanLinesCR is bufio.ScanLines that also splits on lone carriage returns.
func scanLinesCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance = i + 1
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			advance++
		}
		return advance, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
