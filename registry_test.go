package statewire

import (
	"testing"

	"github.com/zoobzio/statewire/wire"
)

type altCodec struct {
	memCodec
}

func (c *altCodec) ContentType() string { return "application/x-alt" }

func TestUse_CachesByTypeAndCodec(t *testing.T) {
	t.Cleanup(Reset)

	p1, err := Use[plainPair](&memCodec{})
	if err != nil {
		t.Fatalf("Use() error: %v", err)
	}
	p2, err := Use[plainPair](&memCodec{})
	if err != nil {
		t.Fatalf("Use() error: %v", err)
	}
	if p1 != p2 {
		t.Error("Use() should return the cached processor for the same pair")
	}

	p3, err := Use[plainPair](&altCodec{})
	if err != nil {
		t.Fatalf("Use() error: %v", err)
	}
	if p3 == p1 {
		t.Error("a different content type should build a different processor")
	}

	p4, err := Use[single](&memCodec{}, WithPositional())
	if err != nil {
		t.Fatalf("Use() error: %v", err)
	}
	if any(p4) == any(p1) {
		t.Error("a different type should build a different processor")
	}
}

func TestUse_OptionsApplyOnFirstBuild(t *testing.T) {
	t.Cleanup(Reset)

	p, err := Use[single](&memCodec{}, WithPositional())
	if err != nil {
		t.Fatalf("Use() error: %v", err)
	}
	wv, err := p.MarshalWire(single{V: 7}, nil)
	if err != nil {
		t.Fatalf("MarshalWire() error: %v", err)
	}
	if !wire.Equal(wv, wire.Int(7)) {
		t.Errorf("MarshalWire() = %s, want bare 7", wire.Format(wv))
	}
}

func TestReset(t *testing.T) {
	t.Cleanup(Reset)

	p1, _ := Use[plainPair](&memCodec{})
	Reset()
	p2, _ := Use[plainPair](&memCodec{})
	if p1 == p2 {
		t.Error("Reset() should clear the cache")
	}
}
