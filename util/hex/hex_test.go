package hex

import (
	"strings"
	"testing"
)

func TestFormatDwordPadsToSixteenHexDigits(t *testing.T) {
	var b strings.Builder
	FormatDword(&b, []uint64{0xdeadbeef, 0})
	got := b.String()
	want := "00000000DEADBEEF 0000000000000000 "
	if got != want {
		t.Errorf("FormatDword = %q, want %q", got, want)
	}
}
