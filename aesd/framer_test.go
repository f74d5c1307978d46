package aesd

import "testing"

func TestFramerScan(t *testing.T) {
	f := Framer{Terminator: DefaultTerminator}
	for _, c := range []struct {
		chunk string
		want  int
	}{
		{"", -1},
		{"hello", -1},
		{"hello\n", 5},
		{"\nrest", 0},
		{"a\nb\n", 1},
	} {
		if got := f.Scan([]byte(c.chunk)); got != c.want {
			t.Errorf("Scan(%q) = %d, want %d", c.chunk, got, c.want)
		}
	}
	if got := (Framer{Terminator: ';'}).Scan([]byte("a\nb;")); got != 3 {
		t.Errorf("custom terminator: got %d", got)
	}
}
