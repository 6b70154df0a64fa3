package patch

import (
	"bytes"
	"testing"
)

func TestRead(t *testing.T) {
	w := New(0x1000, []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})

	buf1 := make([]byte, 1)
	if err := w.Read(0x1000, buf1); err != nil || !bytes.Equal(buf1, []byte{0x00}) {
		t.Fatalf("Read(0x1000, 1) = %v, %v", buf1, err)
	}

	buf4 := make([]byte, 4)
	if err := w.Read(0x1000, buf4); err != nil || !bytes.Equal(buf4, []byte{0x00, 0x01, 0x02, 0x03}) {
		t.Fatalf("Read(0x1000, 4) = %v, %v", buf4, err)
	}

	if err := w.Read(0x1005, buf4); err != nil || !bytes.Equal(buf4, []byte{0x05, 0x06, 0x07, 0x08}) {
		t.Fatalf("Read(0x1005, 4) = %v, %v", buf4, err)
	}

	if err := w.Read(0x0FFF, buf1); err == nil {
		t.Fatal("expected out-of-bounds error")
	}
	if err := w.Read(0x1009, buf1); err == nil {
		t.Fatal("expected out-of-bounds error")
	}
}

func TestWrite(t *testing.T) {
	w := New(0x1000, make([]byte, 4))

	if err := w.Write(0x1000, []byte{0x01}); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(0x1001, []byte{0x08, 0x09}); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 3)
	if err := w.Read(0x1000, buf); err != nil || !bytes.Equal(buf, []byte{0x01, 0x08, 0x09}) {
		t.Fatalf("Read after write = %v, %v", buf, err)
	}

	if err := w.Write(0x0FFF, []byte{0x01}); err == nil {
		t.Fatal("expected out-of-bounds write error")
	}
	if err := w.Write(0x1000, make([]byte, 6)); err == nil {
		t.Fatal("expected out-of-bounds write error")
	}
}

func TestDuplicateWrite(t *testing.T) {
	w := New(0x1000, make([]byte, 4))
	if err := w.Write(0x1001, []byte{0x01, 0x01}); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		addr uint32
		data []byte
	}{
		{0x1001, []byte{0x01}},
		{0x1001, []byte{0x01, 0x02}},
		{0x1000, []byte{0x01, 0x02}},
	}

	for _, c := range cases {
		if err := w.Write(c.addr, c.data); err == nil {
			t.Fatalf("Write(0x%x, %v): expected duplicate-write error", c.addr, c.data)
		}
	}

	if err := w.Write(0x1002, []byte{0x01}); err == nil {
		t.Fatal("expected duplicate-write error")
	}

	// [0x1000, 0x1001) ends where the recorded write begins, so it does not
	// overlap it.
	if err := w.Write(0x1000, []byte{0x01}); err != nil {
		t.Fatalf("Write(0x1000, [1]) next to an earlier write: %v", err)
	}
}

func TestWriteEnd(t *testing.T) {
	w := New(0x1000, make([]byte, 4))
	if err := w.WriteEnd([]byte{0x01}); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 5)
	if err := w.Read(0x1000, buf); err != nil || !bytes.Equal(buf, []byte{0, 0, 0, 0, 1}) {
		t.Fatalf("Read after WriteEnd = %v, %v", buf, err)
	}
}

func TestWriteExtra(t *testing.T) {
	w := New(0x1000, make([]byte, 0x6))

	err := w.WriteExtra(Loader, func(_, extra *Writer) {
		extra.WriteEnd([]byte{0x01})
	})
	if err == nil {
		t.Fatal("expected LoaderExtraAddressNotSet error")
	}

	w.SetLoaderExtraAddress(0x1002)
	if err := w.WriteExtra(Loader, func(_, extra *Writer) {
		extra.WriteEnd([]byte{0x01, 0x02})
	}); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 6)
	if err := w.Read(0x1000, buf); err != nil || !bytes.Equal(buf, []byte{0, 0, 1, 2, 0, 0}) {
		t.Fatalf("Read after loader WriteExtra = %v, %v", buf, err)
	}

	if err := w.WriteExtra(Tail, func(_, extra *Writer) {
		extra.WriteEnd([]byte{0x03, 0x04})
	}); err != nil {
		t.Fatal(err)
	}

	buf8 := make([]byte, 8)
	if err := w.Read(0x1000, buf8); err != nil || !bytes.Equal(buf8, []byte{0, 0, 1, 2, 0, 0, 3, 4}) {
		t.Fatalf("Read after tail WriteExtra = %v, %v", buf8, err)
	}
}

func TestResizeUntil(t *testing.T) {
	w := New(0x1000, []byte{0xAA, 0xAA, 0xAA, 0xAA})

	if err := w.ResizeUntil(0x1008); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 8)
	if err := w.Read(0x1000, buf); err != nil || !bytes.Equal(buf, []byte{0xAA, 0xAA, 0xAA, 0xAA, 0, 0, 0, 0}) {
		t.Fatalf("Read after grow = %v, %v", buf, err)
	}

	if err := w.ResizeUntil(0x1004); err != nil {
		t.Fatal(err)
	}
	buf4 := make([]byte, 4)
	if err := w.Read(0x1000, buf4); err != nil || !bytes.Equal(buf4, []byte{0xAA, 0xAA, 0xAA, 0xAA}) {
		t.Fatalf("Read after shrink = %v, %v", buf4, err)
	}
	if err := w.Read(0x1004, make([]byte, 1)); err == nil {
		t.Fatal("expected out-of-bounds read after shrink")
	}

	if err := w.ResizeUntil(0x0FFF); err == nil {
		t.Fatal("expected ResizeBelowBaseAddress error")
	}
}
