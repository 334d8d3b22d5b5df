package keepawake

import "testing"

func Test_Acquire_releaseIsSafeEvenWhenInhibitionFailed(t *testing.T) {
	tok, err := Acquire()
	if err != nil {
		t.Fatalf("Acquire returned an error: %v", err)
	}

	if err := tok.Release(); err != nil {
		t.Fatalf("Release returned an error: %v", err)
	}
}

func Test_Token_releaseOnNilIsNoOp(t *testing.T) {
	var tok *Token
	if err := tok.Release(); err != nil {
		t.Fatalf("Release on nil Token returned an error: %v", err)
	}
}
