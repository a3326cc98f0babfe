package contact

import (
	"strings"
	"testing"

	"github.com/matheus3301/sigma/internal/convindex"
)

func TestLinkRoundTrip(t *testing.T) {
	p := convindex.Peer{ID: "64f0c2", Name: "Ana Souza", Phone: "+55 85 9999"}
	link := Link(p)
	if !strings.HasPrefix(link, "sigma://contact/64f0c2?") {
		t.Fatalf("Link() = %q", link)
	}
	got, err := Parse(link)
	if err != nil {
		t.Fatal(err)
	}
	if got != p {
		t.Errorf("Parse(Link()) = %+v, want %+v", got, p)
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "u2", "https://contact/u2", "sigma://user/u2", "sigma://contact/"} {
		if _, err := Parse(in); err != ErrNotContactLink {
			t.Errorf("Parse(%q) err = %v, want ErrNotContactLink", in, err)
		}
	}
}

func TestPeerArg(t *testing.T) {
	if p := PeerArg(" u2 "); p.ID != "u2" || p.Name != "" {
		t.Errorf("PeerArg(id) = %+v", p)
	}
	if p := PeerArg("sigma://contact/u3?name=Cid"); p.ID != "u3" || p.Name != "Cid" {
		t.Errorf("PeerArg(link) = %+v", p)
	}
}

func TestRenderQR(t *testing.T) {
	out, err := RenderQR(Link(convindex.Peer{ID: "u1"}))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) < 10 {
		t.Fatalf("QR has %d lines, want a full symbol", len(lines))
	}
	if !strings.ContainsRune(out, '█') {
		t.Error("QR contains no full blocks")
	}
}
