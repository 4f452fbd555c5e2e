package embedding

import (
	"math"
	"reflect"
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, _ := tok.Tokenize("hello world", 10)
	if len(ids) != 10 {
		t.Errorf("len(ids)=%d", len(ids))
	}
	if ids[0] != 101 {
		t.Errorf("expected CLS 101, got %d", ids[0])
	}
	if ids[3] != 102 {
		t.Errorf("expected SEP 102 after two words, got %d", ids[3])
	}
	if attn[0] != 1 || attn[3] != 1 || attn[4] != 0 {
		t.Errorf("attention mask = %v", attn)
	}
}

func TestWords(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"  a  b  c  ", []string{"a", "b", "c"}},
		{"The Dragon's hoard!", []string{"the", "dragon", "s", "hoard"}},
		{"Élan vital", []string{"lan", "vital"}},
		{"rune-42\tkeep", []string{"rune", "42", "keep"}},
		{"", nil},
		{"!!!", nil},
	}
	for _, tt := range tests {
		got := Words(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Words(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStringHash(t *testing.T) {
	tests := []struct {
		in   string
		want int32
	}{
		{"", 0},
		{"a", 97},
		{"abc", 96354},
		{"hello", 99162322},
		// wraps past int32
		{"polygenelubricants", math.MinInt32},
	}
	for _, tt := range tests {
		if got := StringHash(tt.in); got != tt.want {
			t.Errorf("StringHash(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBucket(t *testing.T) {
	if got := Bucket(97, 384); got != 97 {
		t.Errorf("Bucket(97) = %d", got)
	}
	if got := Bucket(-10, 384); got != 10 {
		t.Errorf("Bucket(-10) = %d", got)
	}
	got := Bucket(math.MinInt32, 384)
	if got < 0 || got >= 384 {
		t.Errorf("Bucket(MinInt32) = %d out of range", got)
	}
	if want := int(int64(2147483648) % 384); got != want {
		t.Errorf("Bucket(MinInt32) = %d, want %d", got, want)
	}
}
