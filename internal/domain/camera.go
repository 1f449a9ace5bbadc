package domain

import (
	"fmt"
	"strings"
)

// CameraEffect is a preview filter. Selecting one only records the choice.
type CameraEffect string

const (
	EffectNone      CameraEffect = "none"
	EffectWarm      CameraEffect = "warm"
	EffectCool      CameraEffect = "cool"
	EffectGrayscale CameraEffect = "grayscale"
	EffectSepia     CameraEffect = "sepia"
)

// CameraEffects lists every supported effect in display order.
var CameraEffects = []CameraEffect{EffectNone, EffectWarm, EffectCool, EffectGrayscale, EffectSepia}

// ParseCameraEffect parses a case-insensitive effect name.
func ParseCameraEffect(s string) (CameraEffect, error) {
	e := CameraEffect(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range CameraEffects {
		if e == known {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown camera effect %q", s)
}

// StreamQuality is the requested output quality.
type StreamQuality string

const (
	QualitySD StreamQuality = "sd"
	QualityHD StreamQuality = "hd"
)

// QualityProfile describes the encoder settings a quality maps to.
type QualityProfile struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	Bitrate int `json:"bitrate"`
}

// Profile returns the nominal encoder settings for q.
func (q StreamQuality) Profile() QualityProfile {
	if q == QualitySD {
		return QualityProfile{Width: 854, Height: 480, Bitrate: 1_000_000}
	}
	return QualityProfile{Width: 1280, Height: 720, Bitrate: 2_500_000}
}

// ParseStreamQuality parses "sd" or "hd", case-insensitively.
func ParseStreamQuality(s string) (StreamQuality, error) {
	switch q := StreamQuality(strings.ToLower(strings.TrimSpace(s))); q {
	case QualitySD, QualityHD:
		return q, nil
	default:
		return "", fmt.Errorf("unknown stream quality %q", s)
	}
}
