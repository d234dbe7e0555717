package models

import (
	"errors"
	"fmt"
	"strings"
)

// DetailLevel selects how verbose a rewritten summary is.
type DetailLevel string

const (
	DetailSimple   DetailLevel = "simple"
	DetailNormal   DetailLevel = "normal"
	DetailDetailed DetailLevel = "detailed"
	DetailExtra    DetailLevel = "extra"
)

// ErrInvalidDetailLevel is returned for levels outside the fixed set.
var ErrInvalidDetailLevel = errors.New("invalid detail level")

// DetailLevels lists the supported levels from least to most verbose.
func DetailLevels() []DetailLevel {
	return []DetailLevel{DetailSimple, DetailNormal, DetailDetailed, DetailExtra}
}

// ParseDetailLevel resolves user input to a DetailLevel. "extra-detailed" is accepted
// as an alias for extra.
func ParseDetailLevel(s string) (DetailLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simple":
		return DetailSimple, nil
	case "normal", "":
		return DetailNormal, nil
	case "detailed":
		return DetailDetailed, nil
	case "extra", "extra-detailed", "extra_detailed":
		return DetailExtra, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDetailLevel, s)
}
