// Package contact encodes a user's identity as a shareable link and renders
// it as a terminal QR code.
package contact

import (
	"errors"
	"net/url"
	"strings"

	"github.com/matheus3301/sigma/internal/convindex"
	qrcode "github.com/skip2/go-qrcode"
)

const scheme = "sigma"

var ErrNotContactLink = errors.New("not a sigma contact link")

// Link returns sigma://contact/<id>?name=..&phone=.. for a user.
func Link(p convindex.Peer) string {
	q := url.Values{}
	if p.Name != "" {
		q.Set("name", p.Name)
	}
	if p.Phone != "" {
		q.Set("phone", p.Phone)
	}
	u := url.URL{Scheme: scheme, Host: "contact", Path: "/" + p.ID, RawQuery: q.Encode()}
	return u.String()
}

// Parse reverses Link.
func Parse(link string) (convindex.Peer, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Scheme != scheme || u.Host != "contact" {
		return convindex.Peer{}, ErrNotContactLink
	}
	id := strings.Trim(u.Path, "/")
	if id == "" {
		return convindex.Peer{}, ErrNotContactLink
	}
	q := u.Query()
	return convindex.Peer{ID: id, Name: q.Get("name"), Phone: q.Get("phone")}, nil
}

// PeerArg accepts either a bare peer id or a contact link.
func PeerArg(arg string) convindex.Peer {
	if p, err := Parse(arg); err == nil {
		return p
	}
	return convindex.Peer{ID: strings.TrimSpace(arg)}
}

// RenderQR converts content to a compact QR code using Unicode half-block
// characters. Two bitmap rows become one terminal line.
func RenderQR(content string) (string, error) {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "", err
	}
	qr.DisableBorder = false

	bitmap := qr.Bitmap()
	var sb strings.Builder
	for y := 0; y < len(bitmap); y += 2 {
		sb.WriteString("  ")
		for x := range bitmap[y] {
			top := bitmap[y][x] // true = black module
			bot := y+1 < len(bitmap) && bitmap[y+1][x]
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String(), nil
}
