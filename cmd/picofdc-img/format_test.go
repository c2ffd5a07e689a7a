package main

import (
	"testing"

	"github.com/jdoe/picofdc/fat12"
)

type memSectorIO struct {
	buf []byte
}

func (m *memSectorIO) ReadSector(lba int) ([512]byte, error) {
	var s [512]byte
	copy(s[:], m.buf[lba*512:(lba+1)*512])
	return s, nil
}

func (m *memSectorIO) WriteSector(lba int, data [512]byte) error {
	copy(m.buf[lba*512:(lba+1)*512], data[:])
	return nil
}

func TestBuildImageProducesMountableVolume(t *testing.T) {
	buf := make([]byte, imageSize)
	if err := buildImage(buf, "GOLDEN", 0xDEADBEEF); err != nil {
		t.Fatalf("buildImage: %v", err)
	}
	if buf[510] != 0x55 || buf[511] != 0xAA {
		t.Fatalf("missing boot signature: %02x %02x", buf[510], buf[511])
	}

	io := &memSectorIO{buf: buf}
	engine, err := fat12.Open(io)
	if err != nil {
		t.Fatalf("Open built image: %v", err)
	}
	entries, err := engine.ListRoot()
	if err != nil {
		t.Fatalf("ListRoot: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty root directory, got %d entries", len(entries))
	}
}
