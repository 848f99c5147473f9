package protocolclient

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTP wraps github.com/jlaffaye/ftp behind the Client interface.
type FTP struct {
	addr  string
	creds Credentials
	root  string
	conn  *ftp.ServerConn
}

func NewFTP(addr, root string, creds Credentials) *FTP {
	return &FTP{addr: addr, root: root, creds: creds}
}

func (f *FTP) Connect(ctx context.Context) error {
	conn, err := ftp.Dial(f.addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(10*time.Second))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if err := conn.Login(f.creds.Username, f.creds.Password); err != nil {
		conn.Quit()
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	f.conn = conn
	return nil
}

func (f *FTP) Close() error {
	if f.conn == nil {
		return nil
	}
	return f.conn.Quit()
}

func (f *FTP) path(p string) string {
	if f.root == "" {
		return p
	}
	return f.root + "/" + p
}

func (f *FTP) List(ctx context.Context, path string) ([]Entry, error) {
	if f.conn == nil {
		return nil, ErrNotConnected
	}
	entries, err := f.conn.List(f.path(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Entry{
			Name:    e.Name,
			IsDir:   e.Type == ftp.EntryTypeFolder,
			Size:    int64(e.Size),
			ModTime: e.Time,
		})
	}
	return out, nil
}

// ftpReadSeekCloser adapts ftp's forward-only Response into a seekable
// reader by re-issuing RETR with a REST offset on Seek, since the protocol
// has no random-access primitive of its own.
type ftpReadSeekCloser struct {
	conn   *ftp.ServerConn
	path   string
	resp   *ftp.Response
	offset int64
}

func (r *ftpReadSeekCloser) Read(p []byte) (int, error) {
	if r.resp == nil {
		resp, err := r.conn.RetrFrom(r.path, uint64(r.offset))
		if err != nil {
			return 0, err
		}
		r.resp = resp
	}
	n, err := r.resp.Read(p)
	r.offset += int64(n)
	return n, err
}

func (r *ftpReadSeekCloser) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekStart {
		return 0, fmt.Errorf("protocolclient: ftp seek only supports SeekStart")
	}
	if r.resp != nil {
		r.resp.Close()
		r.resp = nil
	}
	r.offset = offset
	return r.offset, nil
}

func (r *ftpReadSeekCloser) Close() error {
	if r.resp == nil {
		return nil
	}
	return r.resp.Close()
}

func (f *FTP) Open(ctx context.Context, path string) (ReadSeekCloser, error) {
	if f.conn == nil {
		return nil, ErrNotConnected
	}
	return &ftpReadSeekCloser{conn: f.conn, path: f.path(path)}, nil
}

func (f *FTP) Stat(ctx context.Context, path string) (Entry, error) {
	if f.conn == nil {
		return Entry{}, ErrNotConnected
	}
	size, err := f.conn.FileSize(f.path(path))
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return Entry{Name: path, Size: size}, nil
}
