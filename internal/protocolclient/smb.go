package protocolclient

import (
	"context"
	"fmt"
	"net"
	"path"
	"time"

	"github.com/hirochachacha/go-smb2"
)

// SMB wraps github.com/hirochachacha/go-smb2 behind the Client interface.
// share is the SMB share name (e.g. "media"); root is a path prefix inside it.
type SMB struct {
	addr  string
	share string
	root  string
	creds Credentials

	tcp     net.Conn
	session *smb2.Session
	fs      *smb2.Share
}

func NewSMB(addr, share, root string, creds Credentials) *SMB {
	return &SMB{addr: addr, share: share, root: root, creds: creds}
}

func (s *SMB) Connect(ctx context.Context) error {
	d := net.Dialer{Timeout: 10 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	dialer := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     s.creds.Username,
			Password: s.creds.Password,
			Domain:   s.creds.Domain,
		},
	}
	session, err := dialer.DialContext(ctx, conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	fs, err := session.Mount(s.share)
	if err != nil {
		session.Logoff()
		conn.Close()
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	s.tcp, s.session, s.fs = conn, session, fs
	return nil
}

func (s *SMB) Close() error {
	if s.fs != nil {
		s.fs.Umount()
	}
	if s.session != nil {
		s.session.Logoff()
	}
	if s.tcp != nil {
		return s.tcp.Close()
	}
	return nil
}

func (s *SMB) resolve(p string) string {
	return path.Join(s.root, path.Clean("/"+p))
}

func (s *SMB) List(ctx context.Context, p string) ([]Entry, error) {
	if s.fs == nil {
		return nil, ErrNotConnected
	}
	infos, err := s.fs.ReadDir(s.resolve(p))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	out := make([]Entry, 0, len(infos))
	for _, info := range infos {
		out = append(out, Entry{Name: info.Name(), IsDir: info.IsDir(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return out, nil
}

func (s *SMB) Open(ctx context.Context, p string) (ReadSeekCloser, error) {
	if s.fs == nil {
		return nil, ErrNotConnected
	}
	f, err := s.fs.Open(s.resolve(p))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return f, nil
}

func (s *SMB) Stat(ctx context.Context, p string) (Entry, error) {
	if s.fs == nil {
		return Entry{}, ErrNotConnected
	}
	info, err := s.fs.Stat(s.resolve(p))
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return Entry{Name: info.Name(), IsDir: info.IsDir(), Size: info.Size(), ModTime: info.ModTime()}, nil
}
