package gex

import (
	"testing"
	"time"
)

func at(hour int) time.Time {
	return time.Date(2025, 6, 2, hour, 30, 0, 0, time.UTC)
}

func TestClassify_MeanReversion(t *testing.T) {
	// $2B total, spot boxed between the walls.
	sig := classify(2000.0, 100, fptr(105), fptr(95), fptr(90), at(10))
	if sig == nil || sig.Signal != "MEAN_REVERSION" {
		t.Fatalf("expected MEAN_REVERSION, got %+v", sig)
	}
	if sig.Bias != "NEUTRAL" || sig.Color != "emerald" {
		t.Errorf("unexpected presentation fields: %+v", sig)
	}
}

func TestClassify_MeanReversionBeatsAcceleration(t *testing.T) {
	// Rule order is fixed: strong positive gamma wins even with spot below
	// the flip point, which would otherwise trigger acceleration.
	sig := classify(2000.0, 100, fptr(105), fptr(95), fptr(110), at(10))
	if sig == nil || sig.Signal != "MEAN_REVERSION" {
		t.Fatalf("expected MEAN_REVERSION to take priority, got %+v", sig)
	}
}

func TestClassify_MeanReversionRequiresBoxedSpot(t *testing.T) {
	// Spot above the call wall disqualifies the reversion rule.
	sig := classify(2000.0, 110, fptr(105), fptr(95), nil, at(10))
	if sig != nil {
		t.Errorf("expected no signal outside the walls, got %+v", sig)
	}
}

func TestClassify_AccelerationOnNegativeTotal(t *testing.T) {
	sig := classify(-50.0, 100, fptr(105), fptr(95), nil, at(10))
	if sig == nil || sig.Signal != "ACCELERATION" {
		t.Fatalf("expected ACCELERATION, got %+v", sig)
	}
	if sig.Bias != "BEARISH_VOL" || sig.Color != "rose" {
		t.Errorf("unexpected presentation fields: %+v", sig)
	}
}

func TestClassify_AccelerationBelowFlip(t *testing.T) {
	// Positive total but spot under the zero-gamma level.
	sig := classify(200.0, 98, fptr(105), fptr(95), fptr(100), at(10))
	if sig == nil || sig.Signal != "ACCELERATION" {
		t.Fatalf("expected ACCELERATION below flip point, got %+v", sig)
	}
}

func TestClassify_MagnetPin(t *testing.T) {
	// 14:30, spot within 0.5% of the call wall.
	sig := classify(500.0, 104.8, fptr(105), fptr(95), nil, at(14))
	if sig == nil || sig.Signal != "MAGNET_PIN" {
		t.Fatalf("expected MAGNET_PIN, got %+v", sig)
	}
	if sig.Validity != "Medium" || sig.Color != "amber" {
		t.Errorf("unexpected presentation fields: %+v", sig)
	}
}

func TestClassify_MagnetPinPicksNearestWall(t *testing.T) {
	sig := classify(500.0, 95.2, fptr(105), fptr(95), nil, at(15))
	if sig == nil || sig.Signal != "MAGNET_PIN" {
		t.Fatalf("expected MAGNET_PIN near put wall, got %+v", sig)
	}
}

func TestClassify_MagnetPinRequiresLateSession(t *testing.T) {
	sig := classify(500.0, 104.8, fptr(105), fptr(95), nil, at(13))
	if sig != nil {
		t.Errorf("pin rule must not fire before 14:00, got %+v", sig)
	}
}

func TestClassify_MagnetPinRequiresProximity(t *testing.T) {
	// 2% away from the nearest wall.
	sig := classify(500.0, 103, fptr(105), fptr(95), nil, at(15))
	if sig != nil {
		t.Errorf("pin rule must not fire 2%% from the wall, got %+v", sig)
	}
}

func TestClassify_NoSignal(t *testing.T) {
	sig := classify(500.0, 100, fptr(105), fptr(95), fptr(90), at(10))
	if sig != nil {
		t.Errorf("expected nil signal, got %+v", sig)
	}
}

func TestClassify_NilLevels(t *testing.T) {
	if sig := classify(500.0, 100, nil, nil, nil, at(15)); sig != nil {
		t.Errorf("expected nil signal with no levels, got %+v", sig)
	}
	if sig := classify(-1.0, 100, nil, nil, nil, at(10)); sig == nil || sig.Signal != "ACCELERATION" {
		t.Errorf("negative total must still classify without levels, got %+v", sig)
	}
}
