package mqtt

import "strings"

// topicSeparator delimits topic levels.
const topicSeparator = "/"

// MatchTopic reports whether a concrete topic name matches a subscription
// pattern.
//
// Matching is a single pass over the /-separated segments, anchored at both
// ends: a pattern never matches a topic that merely contains it as a
// substring.
//
//   - "+" matches exactly one arbitrary segment
//   - "#" matches the remainder of the topic, including none, and is only
//     honoured as the final pattern segment — "a/#/b" matches nothing
//   - every other segment must match literally and case-sensitively,
//     including empty segments from consecutive separators
//
// Following broker convention, "#" also matches the parent level itself:
// MatchTopic("inputs", "inputs/#") is true.
func MatchTopic(topic, pattern string) bool {
	patternParts := strings.Split(pattern, topicSeparator)
	topicParts := strings.Split(topic, topicSeparator)

	pi, ti := 0, 0
	for pi < len(patternParts) {
		p := patternParts[pi]

		if p == "#" {
			// Multi-level wildcard swallows the rest of the topic,
			// but only from the final pattern segment.
			return pi == len(patternParts)-1
		}

		if ti >= len(topicParts) {
			return false
		}

		switch {
		case p == "+":
			pi++
			ti++
		case p == topicParts[ti]:
			pi++
			ti++
		default:
			return false
		}
	}

	return ti == len(topicParts)
}

// ValidPattern reports whether pattern is a legal subscription pattern:
// non-empty, "#" only as the final segment, and wildcards occupying whole
// segments ("a+b" is a literal in matching terms, but registering it is
// almost certainly a mistake, so it is rejected here).
func ValidPattern(pattern string) bool {
	if pattern == "" {
		return false
	}

	parts := strings.Split(pattern, topicSeparator)
	for i, p := range parts {
		if p == "#" && i != len(parts)-1 {
			return false
		}
		if len(p) > 1 && strings.ContainsAny(p, "+#") {
			return false
		}
	}
	return true
}

// ValidTopic reports whether topic is a legal publish topic: non-empty and
// wildcard-free. Wildcards are accepted only in subscription patterns.
func ValidTopic(topic string) bool {
	return topic != "" && !strings.ContainsAny(topic, "+#")
}
