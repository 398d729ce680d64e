// ABOUTME: Tests for the channel bitmask
// ABOUTME: Verifies set operations, ordering and YAML round trip
package device

import "testing"

func TestChannelSetBasics(t *testing.T) {
	var s ChannelSet
	s = s.With(0).With(3)

	if !s.Test(0) || !s.Test(3) {
		t.Error("expected channels 0 and 3 set")
	}
	if s.Test(1) {
		t.Error("channel 1 should not be set")
	}
	if s.Count() != 2 {
		t.Errorf("expected count 2, got %d", s.Count())
	}
	if s.Highest() != 3 {
		t.Errorf("expected highest 3, got %d", s.Highest())
	}

	s = s.Without(3)
	if s.Test(3) {
		t.Error("channel 3 should be cleared")
	}
}

func TestChannelSetChannelsOrdered(t *testing.T) {
	s := Stereo().With(5)
	got := s.Channels()
	want := []int{0, 1, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestChannelSetBounds(t *testing.T) {
	var s ChannelSet
	s = s.With(-1).With(MaxChannels)
	if s != 0 {
		t.Errorf("out-of-range With should be a no-op, got %v", s)
	}
	if s.Test(-1) || s.Test(MaxChannels) {
		t.Error("out-of-range Test should be false")
	}
	if s.Highest() != -1 {
		t.Errorf("empty set highest should be -1, got %d", s.Highest())
	}
}

func TestFirstChannels(t *testing.T) {
	if got := FirstChannels(2); got != Stereo() {
		t.Errorf("expected stereo mask, got %v", got)
	}
	if got := FirstChannels(0); got != 0 {
		t.Errorf("expected empty mask, got %v", got)
	}
	if got := FirstChannels(64).Count(); got != 64 {
		t.Errorf("expected 64 channels, got %d", got)
	}
}

func TestChannelSetLimit(t *testing.T) {
	s := FirstChannels(8)
	if got := s.Limit(2); got != Stereo() {
		t.Errorf("expected stereo, got %v", got)
	}
}

func TestChannelSetStringParse(t *testing.T) {
	s := Mono().With(2)
	if s.String() != "0,2" {
		t.Errorf("expected \"0,2\", got %q", s.String())
	}

	parsed, err := ParseChannelSet("0, 2")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed != s {
		t.Errorf("expected %v, got %v", s, parsed)
	}

	empty, err := ParseChannelSet("none")
	if err != nil || empty != 0 {
		t.Errorf("expected empty set, got %v (%v)", empty, err)
	}

	if _, err := ParseChannelSet("0,99"); err == nil {
		t.Error("expected range error for channel 99")
	}
	if _, err := ParseChannelSet("a,b"); err == nil {
		t.Error("expected parse error")
	}
}
