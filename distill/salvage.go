package distill

import (
	"errors"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrUnparseable means no structured profile could be recovered from a model
// response, even after salvage attempts.
var ErrUnparseable = errors.New("no structured profile found in model output")

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// ParseProfile extracts a Profile from raw model output. The model is asked
// for bare JSON but routinely wraps it in commentary, code fences, or
// truncates it, so parsing proceeds in stages:
//
//  1. strict parse of the whole response;
//  2. strict parse of the first '{' through the last '}';
//  3. strict parse of a fenced ```json block.
//
// Failure is reported as ErrUnparseable and never as a panic; the reducer
// treats it as an empty contribution, not a fatal condition.
func ParseProfile(raw string) (Profile, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Profile{}, ErrUnparseable
	}

	if p, err := ParseProfileStrict(s); err == nil {
		return p, nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start != -1 && end > start {
		sub := s[start : end+1]
		// gjson.Valid is a cheap pre-check before a full decode attempt.
		if gjson.Valid(sub) {
			if p, err := ParseProfileStrict(sub); err == nil {
				return p, nil
			}
		}
	}

	if m := fencedJSONRe.FindStringSubmatch(s); m != nil {
		if p, err := ParseProfileStrict(m[1]); err == nil {
			return p, nil
		}
	}

	return Profile{}, ErrUnparseable
}
