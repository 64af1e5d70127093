package gpu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/jhye/pistorm/internal/capture"
	"github.com/jhye/pistorm/internal/config"
)

// Offload errors.
var (
	// ErrNoSSHKey is returned when the configured key file cannot be read.
	ErrNoSSHKey = errors.New("ssh key not readable")

	// ErrTransferFailed is returned when the remote copy did not complete.
	ErrTransferFailed = errors.New("capture transfer failed")
)

// sshPort is appended to the GPU host address when none is given.
const sshPort = "22"

// dialTimeout bounds the TCP connect to the GPU host. The host is on
// the same LAN; anything slower than this means it is down.
const dialTimeout = 10 * time.Second

// SSHOffloader copies capture files to the GPU host's incoming
// directory over SSH. The listener on that host picks them up from
// there, so a plain file copy is the whole handoff protocol.
type SSHOffloader struct {
	cfg    config.GPUConfig
	store  *capture.Store
	logger *slog.Logger
}

// NewSSHOffloader creates an offloader for the given GPU settings.
func NewSSHOffloader(cfg config.GPUConfig, store *capture.Store, logger *slog.Logger) *SSHOffloader {
	return &SSHOffloader{cfg: cfg, store: store, logger: logger}
}

// Offload stages the capture file and copies it to the GPU host. The
// remote file name carries the sanitized target so the listener can
// attribute its result.
func (o *SSHOffloader) Offload(ctx context.Context, capFile, target string) error {
	staged, err := o.store.StageForGPU(capFile)
	if err != nil {
		return err
	}

	client, err := o.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	remote := path.Join(o.cfg.IncomingDir, filepath.Base(staged))
	if err := o.push(client, staged, remote); err != nil {
		return err
	}

	o.logger.Info("capture offloaded to gpu host",
		"host", o.cfg.Host,
		"remote", remote,
		"target", target,
	)
	return nil
}

// dial opens an SSH connection to the GPU host using key auth.
func (o *SSHOffloader) dial(ctx context.Context) (*ssh.Client, error) {
	key, err := os.ReadFile(o.cfg.SSHKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSSHKey, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parse ssh key: %w", err)
	}

	addr := o.cfg.Host
	if _, _, splitErr := net.SplitHostPort(addr); splitErr != nil {
		addr = net.JoinHostPort(addr, sshPort)
	}

	sshCfg := &ssh.ClientConfig{
		User: o.cfg.User,
		Auth: []ssh.AuthMethod{ssh.PublicKeys(signer)},
		// The GPU host lives on the harness's own LAN segment and is
		// reinstalled often enough that pinning its host key would break
		// every rebuild.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial gpu host: %w", err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshCfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with gpu host: %w", err)
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

// push streams the local file into the remote path through a shell
// session. cat-over-ssh avoids depending on sftp being enabled on the
// Windows OpenSSH server.
func (o *SSHOffloader) push(client *ssh.Client, local, remote string) error {
	src, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("open staged capture: %w", err)
	}
	defer src.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("open ssh session: %w", err)
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return fmt.Errorf("open ssh stdin: %w", err)
	}

	cmd := fmt.Sprintf("mkdir -p %q && cat > %q", path.Dir(remote), remote)
	if err := session.Start(cmd); err != nil {
		return fmt.Errorf("start remote copy: %w", err)
	}

	if _, err := io.Copy(stdin, src); err != nil {
		stdin.Close()
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if err := stdin.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	if err := session.Wait(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}
