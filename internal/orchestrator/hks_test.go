package orchestrator

import "testing"

func TestDecodeHexPatch(t *testing.T) {
	data, err := decodeHexPatch("DE AD be ef")
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if len(data) != len(want) {
		t.Fatalf("len = %d, want %d", len(data), len(want))
	}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("data[%d] = %x, want %x", i, data[i], want[i])
		}
	}
}

func TestDecodeHexPatchOddLength(t *testing.T) {
	if _, err := decodeHexPatch("abc"); err != errOddHexLength {
		t.Fatalf("err = %v, want errOddHexLength", err)
	}
}

func TestDecodeHexPatchBadDigit(t *testing.T) {
	if _, err := decodeHexPatch("zz"); err != errBadHexDigit {
		t.Fatalf("err = %v, want errBadHexDigit", err)
	}
}

func TestRoundUpPage(t *testing.T) {
	cases := map[uint32]uint32{
		0x1000: 0x1000,
		0x1001: 0x2000,
		0x0FFF: 0x1000,
		0:      0,
	}
	for in, want := range cases {
		if got := roundUpPage(in); got != want {
			t.Errorf("roundUpPage(0x%x) = 0x%x, want 0x%x", in, got, want)
		}
	}
}
