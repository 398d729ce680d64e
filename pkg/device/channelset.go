// ABOUTME: Bitmask of enabled device channels
// ABOUTME: Compact replacement for per-channel bool slices in device setups
package device

import (
	"fmt"
	"math/bits"
	"strings"
)

// MaxChannels is the highest channel index a ChannelSet can represent.
const MaxChannels = 64

// ChannelSet is a bitmask of enabled channel indices, bit 0 = channel 0.
type ChannelSet uint64

// Stereo returns a set with channels 0 and 1 enabled.
func Stereo() ChannelSet { return ChannelSet(0b11) }

// Mono returns a set with only channel 0 enabled.
func Mono() ChannelSet { return ChannelSet(0b1) }

// FirstChannels returns a set with the lowest n channels enabled.
func FirstChannels(n int) ChannelSet {
	if n <= 0 {
		return 0
	}
	if n >= MaxChannels {
		return ChannelSet(^uint64(0))
	}
	return ChannelSet(uint64(1)<<n - 1)
}

// With returns the set with channel ch enabled.
func (s ChannelSet) With(ch int) ChannelSet {
	if ch < 0 || ch >= MaxChannels {
		return s
	}
	return s | 1<<ch
}

// Without returns the set with channel ch disabled.
func (s ChannelSet) Without(ch int) ChannelSet {
	if ch < 0 || ch >= MaxChannels {
		return s
	}
	return s &^ (1 << ch)
}

// Test reports whether channel ch is enabled.
func (s ChannelSet) Test(ch int) bool {
	if ch < 0 || ch >= MaxChannels {
		return false
	}
	return s&(1<<ch) != 0
}

// Count returns the number of enabled channels.
func (s ChannelSet) Count() int { return bits.OnesCount64(uint64(s)) }

// Highest returns the highest enabled channel index, or -1 when empty.
func (s ChannelSet) Highest() int {
	if s == 0 {
		return -1
	}
	return 63 - bits.LeadingZeros64(uint64(s))
}

// Channels returns the enabled channel indices in ascending order.
func (s ChannelSet) Channels() []int {
	out := make([]int, 0, s.Count())
	for v := uint64(s); v != 0; v &= v - 1 {
		out = append(out, bits.TrailingZeros64(v))
	}
	return out
}

// Limit returns the set restricted to channels below n.
func (s ChannelSet) Limit(n int) ChannelSet { return s & FirstChannels(n) }

// String renders the set as a comma-separated index list, e.g. "0,1".
func (s ChannelSet) String() string {
	if s == 0 {
		return "none"
	}
	parts := make([]string, 0, s.Count())
	for _, ch := range s.Channels() {
		parts = append(parts, fmt.Sprintf("%d", ch))
	}
	return strings.Join(parts, ",")
}

// MarshalYAML stores the set as its index list form.
func (s ChannelSet) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// UnmarshalYAML parses either "none" or a comma-separated index list.
func (s *ChannelSet) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := ParseChannelSet(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseChannelSet parses the String form back into a set.
func ParseChannelSet(raw string) (ChannelSet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "none" {
		return 0, nil
	}
	var set ChannelSet
	for _, part := range strings.Split(raw, ",") {
		var ch int
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d", &ch); err != nil {
			return 0, fmt.Errorf("bad channel index %q: %w", part, err)
		}
		if ch < 0 || ch >= MaxChannels {
			return 0, fmt.Errorf("channel index %d out of range", ch)
		}
		set = set.With(ch)
	}
	return set, nil
}
