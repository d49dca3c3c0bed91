package smaz

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"the",
		"This is a small string",
		"foobar",
		"the end",
		"not-a-g00d-Exampl333",
		"Smaz is a simple compression library",
		"Nothing is more difficult, and therefore more precious, than to be able to decide",
		"http://github.com/antirez/smaz/tree/master",
		"Mo-Fr 09:00-18:00; Sa 10:00-14:00; PH off",
		"+7 (495) 123-45-67",
		strings.Repeat("z", 600),
		strings.Repeat("1234567890", 60),
	}
	codebooks := map[string]*Codebook{"default": Default, "url": URL, "opening_hours": OpeningHours, "phone": Phone}

	for name, cb := range codebooks {
		for _, s := range inputs {
			for _, backtrack := range []bool{false, true} {
				enc := cb.compress([]byte(s), backtrack)
				dec, err := cb.Decompress(enc)
				if err != nil {
					t.Fatalf("%s: Decompress(%q) error = %v", name, s, err)
				}
				if string(dec) != s {
					t.Errorf("%s backtrack=%v: round trip of %q = %q", name, backtrack, s, dec)
				}
			}
		}
	}
}

func TestRoundTripRandomASCII(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		buf := make([]byte, rng.Intn(300))
		for j := range buf {
			buf[j] = byte(rng.Intn(128))
		}
		for _, cb := range []*Codebook{Default, URL, OpeningHours, Phone} {
			for _, backtrack := range []bool{false, true} {
				dec, err := cb.Decompress(cb.compress(buf, backtrack))
				if err != nil || !bytes.Equal(dec, buf) {
					t.Fatalf("round trip of %q failed: %q, %v", buf, dec, err)
				}
			}
		}
	}
}

func TestCompressCodes(t *testing.T) {
	if got := Default.Compress([]byte("the")); !bytes.Equal(got, []byte{1}) {
		t.Errorf("Compress(the) = %v, want [1]", got)
	}
	if got := Default.Compress([]byte("1")); !bytes.Equal(got, []byte{escapeOne, '1'}) {
		t.Errorf("Compress(1) = %v, want [254 '1']", got)
	}
	if got := Default.Compress([]byte("12")); !bytes.Equal(got, []byte{escapeMany, 1, '1', '2'}) {
		t.Errorf("Compress(12) = %v, want [255 1 '1' '2']", got)
	}
}

func TestBacktrackMergesRuns(t *testing.T) {
	in := []byte("the the the 12a34")
	greedy := Default.Compress(in)
	merged := Default.CompressBacktrack(in)

	split := []byte{escapeMany, 1, '1', '2', 4, escapeMany, 1, '3', '4'}
	if !bytes.HasSuffix(greedy, split) {
		t.Fatalf("greedy = %v, want suffix %v", greedy, split)
	}
	prefix := greedy[:len(greedy)-len(split)]
	if len(prefix) != 4 {
		t.Errorf("coded prefix = %v, want 4 codes", prefix)
	}

	want := append(append([]byte(nil), prefix...), escapeMany, 4, '1', '2', 'a', '3', '4')
	if !bytes.Equal(merged, want) {
		t.Errorf("backtrack = %v, want %v", merged, want)
	}
	if len(merged) >= len(greedy) {
		t.Errorf("backtrack length = %d, want less than %d", len(merged), len(greedy))
	}
}

func TestFallbackToVerbatim(t *testing.T) {
	in := []byte("12a34")
	want := []byte{escapeMany, 4, '1', '2', 'a', '3', '4'}
	if got := Default.Compress(in); !bytes.Equal(got, want) {
		t.Errorf("Compress(%q) = %v, want %v", in, got, want)
	}
	if got := Default.CompressBacktrack(in); !bytes.Equal(got, want) {
		t.Errorf("CompressBacktrack(%q) = %v, want %v", in, got, want)
	}
}

func TestBacktrackNeverLonger(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	alphabet := "the quick 0123456789-+()"
	for i := 0; i < 300; i++ {
		buf := make([]byte, rng.Intn(80))
		for j := range buf {
			buf[j] = alphabet[rng.Intn(len(alphabet))]
		}
		if g, b := len(Default.Compress(buf)), len(Default.CompressBacktrack(buf)); b > g {
			t.Fatalf("backtrack %d > greedy %d for %q", b, g, buf)
		}
	}
}

func TestWorstCaseBound(t *testing.T) {
	in := []byte(strings.Repeat("\x01\x02", 200))
	if got, limit := len(Default.Compress(in)), worstCase(len(in)); got > limit {
		t.Errorf("len = %d, exceeds worst case %d", got, limit)
	}
}

func TestDecompressCorrupt(t *testing.T) {
	for _, in := range [][]byte{{escapeOne}, {escapeMany}, {escapeMany, 5, 'a'}, {253}} {
		if _, err := Phone.Decompress(in); err == nil {
			t.Errorf("Decompress(%v) succeeded, want error", in)
		}
	}
}

func TestNewCodebookErrors(t *testing.T) {
	if _, err := NewCodebook([]string{"a", "a"}); err == nil {
		t.Error("duplicate stems should fail")
	}
	if _, err := NewCodebook([]string{""}); err == nil {
		t.Error("empty stem should fail")
	}
	if _, err := NewCodebook(make([]string, 255)); err == nil {
		t.Error("too many stems should fail")
	}
}
