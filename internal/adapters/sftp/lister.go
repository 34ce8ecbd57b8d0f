// Package sftp implements the directory lister over SSH/SFTP.
package sftp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/brianly1003/sftplister/internal/config"
	"github.com/brianly1003/sftplister/internal/domain"
	"github.com/brianly1003/sftplister/internal/domain/ports"
	"github.com/pkg/sftp"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
)

// Lister lists a remote directory over SFTP. Every List call opens its own
// SSH connection and closes it before returning.
type Lister struct {
	cfg       config.SFTPConfig
	sshConfig *ssh.ClientConfig
}

// NewLister validates credentials and the host-key policy up front, so a
// misconfiguration fails at startup rather than on the first cycle.
func NewLister(cfg config.SFTPConfig) (*Lister, error) {
	hostKeyCallback, err := HostKeyCallback(cfg.KnownHostsFile, cfg.AllowUnknownHostKeys)
	if err != nil {
		return nil, err
	}

	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}

	return &Lister{
		cfg: cfg,
		sshConfig: &ssh.ClientConfig{
			User:            cfg.Username,
			Auth:            auth,
			HostKeyCallback: hostKeyCallback,
			Timeout:         cfg.Timeout(),
		},
	}, nil
}

func authMethods(cfg config.SFTPConfig) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if cfg.PrivateKeyFile != "" {
		pemBytes, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}

		signer, err := ssh.ParsePrivateKey(pemBytes)
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) && cfg.Password != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(pemBytes, []byte(cfg.Password))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if cfg.Password != "" {
		password := cfg.Password
		methods = append(methods,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}

	if len(methods) == 0 {
		return nil, errors.New("no SSH authentication method configured")
	}
	return methods, nil
}

// Target returns user@host:port.
func (l *Lister) Target() string {
	return fmt.Sprintf("%s@%s", l.cfg.Username, l.cfg.Address())
}

// List returns the entries of remoteDir. Any failure (dial, handshake,
// auth, protocol) is returned as a *domain.ListError.
func (l *Lister) List(ctx context.Context, remoteDir string) ([]ports.DirectoryEntry, error) {
	entries, err := l.list(ctx, remoteDir)
	if err != nil {
		return nil, domain.NewListError(remoteDir, err)
	}
	return entries, nil
}

func (l *Lister) list(ctx context.Context, remoteDir string) ([]ports.DirectoryEntry, error) {
	addr := l.cfg.Address()

	dialer := net.Dialer{Timeout: l.cfg.Timeout()}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	// Closing the connection unblocks any pending handshake or read when
	// ctx ends.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, l.sshConfig)
	if err != nil {
		_ = conn.Close()
		return nil, ctxErr(ctx, fmt.Errorf("ssh handshake: %w", err))
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return nil, ctxErr(ctx, fmt.Errorf("start sftp subsystem: %w", err))
	}
	defer sftpClient.Close()

	infos, err := sftpClient.ReadDir(remoteDir)
	if err != nil {
		return nil, ctxErr(ctx, fmt.Errorf("read dir: %w", err))
	}

	log.Debug().
		Str("target", l.Target()).
		Str("remote_dir", remoteDir).
		Int("entries", len(infos)).
		Msg("remote directory listed")

	return toEntries(infos), nil
}

// ctxErr prefers the context error when the connection was torn down by
// cancellation.
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w (%v)", ctx.Err(), err)
	}
	return err
}

func toEntries(infos []os.FileInfo) []ports.DirectoryEntry {
	entries := make([]ports.DirectoryEntry, 0, len(infos))
	for _, fi := range infos {
		name := fi.Name()
		entries = append(entries, ports.DirectoryEntry{
			Name:           name,
			IsParentMarker: name == "." || name == "..",
			IsDir:          fi.IsDir(),
			Size:           fi.Size(),
			ModTime:        fi.ModTime(),
		})
	}
	return entries
}
