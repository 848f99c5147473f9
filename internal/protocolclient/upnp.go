package protocolclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const ssdpAddr = "239.255.255.250:1900"

// DiscoveredDevice is one M-SEARCH response, used by Discover (spec.md §6
// `POST /network/discover?timeout=`).
type DiscoveredDevice struct {
	Location     string
	Server       string
	USN          string
	FriendlyName string
}

// Discover sends an SSDP M-SEARCH for MediaServer devices and collects
// responses until timeout elapses or the context is done, generalizing the teacher's DLNA
// advertiser (internal/dlna/ssdp.go, server-side NOTIFY/M-SEARCH handling)
// into the client-side multicast request/response half of the same protocol.
func Discover(ctx context.Context, timeout time.Duration) ([]DiscoveredDevice, error) {
	addr, err := net.ResolveUDPAddr("udp4", ssdpAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer conn.Close()

	search := "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: " + ssdpAddr + "\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 2\r\n" +
		"ST: urn:schemas-upnp-org:device:MediaServer:1\r\n\r\n"
	if _, err := conn.WriteTo([]byte(search), addr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)

	var devices []DiscoveredDevice
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return devices, nil
		default:
		}
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			break // deadline reached or socket closed
		}
		devices = append(devices, parseSSDPResponse(string(buf[:n])))
	}
	return devices, nil
}

func parseSSDPResponse(msg string) DiscoveredDevice {
	d := DiscoveredDevice{}
	for _, line := range strings.Split(msg, "\r\n") {
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "LOCATION:"):
			d.Location = strings.TrimSpace(line[len("LOCATION:"):])
		case strings.HasPrefix(upper, "SERVER:"):
			d.Server = strings.TrimSpace(line[len("SERVER:"):])
		case strings.HasPrefix(upper, "USN:"):
			d.USN = strings.TrimSpace(line[len("USN:"):])
		}
	}
	return d
}

// UPnP serves files by plain HTTP GET against a MediaServer's resource URLs.
// Listing a directory isn't supported over the bare resource protocol here;
// sources of this kind are registered with an explicit base resource path
// rather than browsed, matching the file-oriented scope of spec.md §4.2.
type UPnP struct {
	baseURL string
	client  *http.Client
}

func NewUPnP(baseURL string) *UPnP {
	return &UPnP{baseURL: strings.TrimRight(baseURL, "/"), client: &http.Client{Timeout: 30 * time.Second}}
}

func (u *UPnP) Connect(ctx context.Context) error { return nil }
func (u *UPnP) Close() error                      { return nil }

func (u *UPnP) List(ctx context.Context, path string) ([]Entry, error) {
	return nil, fmt.Errorf("protocolclient: upnp does not support directory listing")
}

type upnpReadSeekCloser struct {
	ctx    context.Context
	client *http.Client
	url    string
	size   int64
	offset int64
	body   io.ReadCloser
}

func (r *upnpReadSeekCloser) Read(p []byte) (int, error) {
	if r.body == nil {
		req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, r.url, nil)
		if err != nil {
			return 0, err
		}
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", r.offset))
		resp, err := r.client.Do(req)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrTransient, err)
		}
		if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return 0, ErrNotFound
		}
		r.body = resp.Body
	}
	n, err := r.body.Read(p)
	r.offset += int64(n)
	return n, err
}

func (r *upnpReadSeekCloser) Seek(offset int64, whence int) (int64, error) {
	if r.body != nil {
		r.body.Close()
		r.body = nil
	}
	switch whence {
	case io.SeekStart:
		r.offset = offset
	case io.SeekCurrent:
		r.offset += offset
	case io.SeekEnd:
		r.offset = r.size + offset
	}
	return r.offset, nil
}

func (r *upnpReadSeekCloser) Close() error {
	if r.body == nil {
		return nil
	}
	return r.body.Close()
}

func (u *UPnP) Open(ctx context.Context, path string) (ReadSeekCloser, error) {
	entry, err := u.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	return &upnpReadSeekCloser{ctx: ctx, client: u.client, url: u.resourceURL(path), size: entry.Size}, nil
}

func (u *UPnP) resourceURL(path string) string {
	return u.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (u *UPnP) Stat(ctx context.Context, path string) (Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.resourceURL(path), nil)
	if err != nil {
		return Entry{}, err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return Entry{}, ErrNotFound
	}
	size, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	return Entry{Name: path, Size: size}, nil
}
