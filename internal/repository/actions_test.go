package repository

import (
	"testing"

	"github.com/quantfoundry/universe-data/internal/errs"
	"github.com/quantfoundry/universe-data/internal/model"
)

func TestPartitionActions(t *testing.T) {
	all := []model.CorporateAction{
		{Symbol: "AAA", Effective: date("2024-01-02"), Kind: model.ActionSplit, Numerator: 2, Denominator: 1},
		{Symbol: "AAA", Effective: date("2024-01-03"), Kind: model.ActionDividend, Amount: 0.5},
		{Symbol: "AAA", Effective: date("2024-01-04"), Kind: model.ActionSplit, Numerator: 3, Denominator: 2},
	}

	splits, dividends, err := partitionActions(all)
	if err != nil {
		t.Fatalf("partitionActions: %v", err)
	}
	if len(splits) != 2 {
		t.Errorf("len(splits) = %d, want 2", len(splits))
	}
	if len(dividends) != 1 {
		t.Errorf("len(dividends) = %d, want 1", len(dividends))
	}
	if splits[0].Numerator != 2 || splits[1].Numerator != 3 {
		t.Errorf("splits out of order: %+v", splits)
	}
	if dividends[0].Amount != 0.5 {
		t.Errorf("dividend Amount = %v, want 0.5", dividends[0].Amount)
	}
}

func TestPartitionActions_UnknownKind(t *testing.T) {
	all := []model.CorporateAction{
		{Symbol: "AAA", Effective: date("2024-01-02"), Kind: model.ActionKind("spinoff")},
	}

	_, _, err := partitionActions(all)
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if !errs.IsIntegrity(err) {
		t.Errorf("error = %v, want IntegrityError", err)
	}
}

func TestPartitionActions_Empty(t *testing.T) {
	splits, dividends, err := partitionActions(nil)
	if err != nil {
		t.Fatalf("partitionActions: %v", err)
	}
	if splits != nil || dividends != nil {
		t.Errorf("partitionActions(nil) = %v, %v, want nil, nil", splits, dividends)
	}
}
