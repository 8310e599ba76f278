package xmodem

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

// SSHSession wraps an SSH session for XModem transfers. The remote side
// runs the classic sx/rx commands; the local side drives the protocol over
// the session's stdin/stdout pipes.
type SSHSession struct {
	*Session
	sshSession *ssh.Session
	channel    *StreamChannel
	stdin      io.WriteCloser
	stdout     io.Reader
	stderr     io.Reader
}

// NewSSHSession creates an XModem session from an SSH session.
func NewSSHSession(sshSession *ssh.Session, opts ...Option) (*SSHSession, error) {
	stdin, err := sshSession.StdinPipe()
	if err != nil {
		return nil, err
	}

	stdout, err := sshSession.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, err
	}

	stderr, err := sshSession.StderrPipe()
	if err != nil {
		stdin.Close()
		return nil, err
	}

	// Peek at the options so byte-level logging can wrap the pipes before
	// the read pump starts.
	probe := Session{logger: NoopLogger{}}
	for _, opt := range opts {
		opt(&probe)
	}

	var r io.Reader = stdout
	var w io.Writer = stdin
	if _, noop := probe.logger.(NoopLogger); !noop {
		r = NewLoggingReader(stdout, probe.logger, "ssh-in")
		w = NewLoggingWriter(stdin, probe.logger, "ssh-out")
	}

	channel := NewStreamChannel(r, w)
	session := NewSession(channel, opts...)

	return &SSHSession{
		Session:    session,
		sshSession: sshSession,
		channel:    channel,
		stdin:      stdin,
		stdout:     stdout,
		stderr:     stderr,
	}, nil
}

// SendFile sends a local file to the remote host, which stores it under
// the file's base name via the remote rx command.
func (s *SSHSession) SendFile(ctx context.Context, path string, use1K bool) error {
	remote := fmt.Sprintf("rx %q", filepath.Base(path))
	if err := s.sshSession.Start(remote); err != nil {
		return err
	}

	err := s.Session.SendFile(ctx, path, use1K)

	return s.finish(ctx, err)
}

// ReceiveFile fetches a remote file via the remote sx command and stores
// it at localPath.
func (s *SSHSession) ReceiveFile(ctx context.Context, remotePath, localPath string, useCRC16 bool) error {
	remote := fmt.Sprintf("sx %q", remotePath)
	if err := s.sshSession.Start(remote); err != nil {
		return err
	}

	err := s.Session.ReceiveFile(ctx, localPath, useCRC16)

	return s.finish(ctx, err)
}

// finish closes our side of the pipe and waits for the remote command.
func (s *SSHSession) finish(ctx context.Context, err error) error {
	done := make(chan error, 1)
	go func() {
		done <- s.sshSession.Wait()
	}()

	s.stdin.Close()

	select {
	case err2 := <-done:
		if err == nil {
			err = err2
		}
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}

	return err
}

// Close closes the SSH session and cleans up resources.
func (s *SSHSession) Close() error {
	var errs []error

	if s.stdin != nil {
		if err := s.stdin.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if s.sshSession != nil {
		if err := s.sshSession.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0] // Return first error
	}

	return nil
}

// Stderr returns the stderr reader for monitoring remote command output.
func (s *SSHSession) Stderr() io.Reader {
	return s.stderr
}
