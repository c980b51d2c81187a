package usecase

import (
	"testing"

	"SigFlow/internal/domain/models"
)

func fptr(v float64) *float64 { return &v }

func TestTriggeredUpPct(t *testing.T) {
	rule := models.AlertRule{Type: models.AlertUpPct, BasePrice: fptr(100), Threshold: fptr(5)}
	if Triggered(rule, 104.99) {
		t.Fatalf("below the 5%% line should not fire")
	}
	if !Triggered(rule, 105) {
		t.Fatalf("exactly on the 5%% line should fire")
	}
	if !Triggered(rule, 150) {
		t.Fatalf("well above the line should fire")
	}
}

func TestTriggeredDownPct(t *testing.T) {
	rule := models.AlertRule{Type: models.AlertDownPct, BasePrice: fptr(100), Threshold: fptr(10)}
	if Triggered(rule, 90.01) {
		t.Fatalf("above the -10%% line should not fire")
	}
	if !Triggered(rule, 90) {
		t.Fatalf("exactly on the -10%% line should fire")
	}
}

func TestTriggeredTP1(t *testing.T) {
	// Upside target: base below the target level.
	up := models.AlertRule{Type: models.AlertTP1, BasePrice: fptr(100), Threshold: fptr(120)}
	if Triggered(up, 119) {
		t.Fatalf("price below an upside target should not fire")
	}
	if !Triggered(up, 120) {
		t.Fatalf("reaching the upside target should fire")
	}

	// Downside target: base above the target level.
	down := models.AlertRule{Type: models.AlertTP1, BasePrice: fptr(100), Threshold: fptr(80)}
	if Triggered(down, 81) {
		t.Fatalf("price above a downside target should not fire")
	}
	if !Triggered(down, 80) {
		t.Fatalf("reaching the downside target should fire")
	}

	// No base price: treated as an upside level.
	free := models.AlertRule{Type: models.AlertTP1, Threshold: fptr(120)}
	if !Triggered(free, 121) {
		t.Fatalf("baseless target should fire on the upside")
	}
}

func TestTriggeredMissingParams(t *testing.T) {
	cases := []models.AlertRule{
		{Type: models.AlertUpPct, Threshold: fptr(5)},
		{Type: models.AlertUpPct, BasePrice: fptr(100)},
		{Type: models.AlertUpPct, BasePrice: fptr(0), Threshold: fptr(5)},
		{Type: models.AlertDownPct},
		{Type: models.AlertTP1},
		{Type: models.AlertType("WEIRD"), BasePrice: fptr(100), Threshold: fptr(5)},
	}
	for i, rule := range cases {
		if Triggered(rule, 1_000_000) {
			t.Fatalf("case %d: incomplete rule must never fire", i)
		}
	}
}
