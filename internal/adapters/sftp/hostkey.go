package sftp

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ErrNoKnownHosts is returned when host keys must be verified but no
// known_hosts file is available.
var ErrNoKnownHosts = errors.New("known_hosts file not found and unknown host keys are not allowed")

// HostKeyCallback builds the host-key policy.
//
// With a readable known_hosts file, listed hosts are verified and a changed
// key is always rejected; a host that is not listed is accepted only when
// allowUnknown is set. Without the file, allowUnknown accepts every key and
// otherwise the callback cannot be built.
func HostKeyCallback(knownHostsFile string, allowUnknown bool) (ssh.HostKeyCallback, error) {
	if knownHostsFile != "" {
		if _, err := os.Stat(knownHostsFile); err == nil {
			verify, err := knownhosts.New(knownHostsFile)
			if err != nil {
				return nil, fmt.Errorf("failed to parse known_hosts %s: %w", knownHostsFile, err)
			}
			return withUnknownPolicy(verify, allowUnknown), nil
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("unable to access known_hosts %s: %w", knownHostsFile, err)
		}
	}

	if !allowUnknown {
		return nil, ErrNoKnownHosts
	}

	log.Warn().Str("known_hosts", knownHostsFile).Msg("no known_hosts file, accepting any host key")
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		log.Debug().
			Str("host", hostname).
			Str("fingerprint", ssh.FingerprintSHA256(key)).
			Msg("host key accepted without verification")
		return nil
	}, nil
}

func withUnknownPolicy(verify ssh.HostKeyCallback, allowUnknown bool) ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := verify(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if errors.As(err, &keyErr) && len(keyErr.Want) == 0 && allowUnknown {
			log.Warn().
				Str("host", hostname).
				Str("fingerprint", ssh.FingerprintSHA256(key)).
				Msg("unknown host key accepted")
			return nil
		}
		return err
	}
}
