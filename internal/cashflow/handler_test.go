package cashflow

import (
	"testing"
	"time"

	"pos-backend/internal/auth"
	"pos-backend/internal/models"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSummarize(t *testing.T) {
	movs := []models.CashMovement{
		{Method: models.CashMethodCash, Direction: models.CashIn, Amount: d("100")},
		{Method: models.CashMethodCash, Direction: models.CashIn, Amount: d("50.25")},
		{Method: models.CashMethodCash, Direction: models.CashOut, Amount: d("30")},
		{Method: models.CashMethodCard, Direction: models.CashIn, Amount: d("200")},
	}
	got := Summarize(movs)
	if len(got.Items) != 2 {
		t.Fatalf("items = %+v", got.Items)
	}
	card, cash := got.Items[0], got.Items[1]
	if card.Method != models.CashMethodCard || !card.Net.Equal(d("200")) {
		t.Errorf("card = %+v", card)
	}
	if !cash.In.Equal(d("150.25")) || !cash.Out.Equal(d("30")) || !cash.Net.Equal(d("120.25")) {
		t.Errorf("cash = %+v", cash)
	}
	if !got.GrandNet.Equal(d("320.25")) {
		t.Errorf("grand net = %s", got.GrandNet)
	}
}

func TestParseRange(t *testing.T) {
	now := time.Date(2026, 4, 10, 15, 30, 0, 0, time.UTC)

	from, to, err := parseRange("", "", now)
	if err != nil {
		t.Fatal(err)
	}
	if !from.Equal(time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)) || !to.Equal(time.Date(2026, 4, 11, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("default range = %s..%s", from, to)
	}

	_, to, err = parseRange("2026-04-01", "2026-04-30", now)
	if err != nil || !to.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("to = %s err = %v", to, err)
	}

	if _, _, err := parseRange("2026-04-30", "2026-04-01", now); err == nil {
		t.Error("expected error for reversed range")
	}
	if _, _, err := parseRange("30.04.2026", "", now); err == nil {
		t.Error("expected error for bad format")
	}
}

func TestResolveBranchID(t *testing.T) {
	own, other := uint(1), uint(2)

	got, err := resolveBranchID(auth.Identity{Role: models.RoleCashier, BranchID: &own}, &other)
	if err != nil || got == nil || *got != 1 {
		t.Errorf("cashier branch = %v, %v", got, err)
	}
	got, err = resolveBranchID(auth.Identity{Role: models.RoleSuperAdmin}, &other)
	if err != nil || got == nil || *got != 2 {
		t.Errorf("super admin branch = %v, %v", got, err)
	}
	if _, err := resolveBranchID(auth.Identity{Role: models.RoleBranchAdmin}, nil); err == nil {
		t.Error("branch admin without branch must fail")
	}
}
