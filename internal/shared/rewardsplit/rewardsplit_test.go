package rewardsplit

import (
	"errors"
	"testing"
)

func TestDistributeEvenWinnerSplitWithRemainder(t *testing.T) {
	// 4 voters x 10 stake, 3 winners: 80% of 40 = 32, 32/3 = 10 each,
	// remainder 2 joins the platform's 8.
	dist, err := Distribute(40, VotingPayout, []string{"alice", "bob", "carol"}, "")
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if len(dist.Winners) != 3 {
		t.Fatalf("expected 3 winner shares, got %d", len(dist.Winners))
	}
	var winnersTotal int64
	for _, share := range dist.Winners {
		if share.Amount != 10 {
			t.Fatalf("expected per-winner 10, got %d for %s", share.Amount, share.Recipient)
		}
		winnersTotal += share.Amount
	}
	if dist.Platform != 10 {
		t.Fatalf("expected platform 10 (8 + remainder 2), got %d", dist.Platform)
	}
	if winnersTotal+dist.Platform+dist.Creator.Amount != 40 {
		t.Fatalf("distribution must conserve the pot")
	}
}

func TestDistributeZeroWinnersRollsToPlatform(t *testing.T) {
	dist, err := Distribute(100, VotingPayout, nil, "")
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if dist.Platform != 100 {
		t.Fatalf("expected whole pot to platform, got %d", dist.Platform)
	}
}

func TestDistributeCreatorShare(t *testing.T) {
	dist, err := Distribute(200, CreatorPayout, []string{"w1", "w2"}, "creator-1")
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if dist.Creator.Amount != 10 {
		t.Fatalf("expected creator 5%% = 10, got %d", dist.Creator.Amount)
	}
	if dist.Winners[0].Amount != 60 || dist.Winners[1].Amount != 60 {
		t.Fatalf("expected 60 per winner, got %+v", dist.Winners)
	}
	if dist.Platform != 70 {
		t.Fatalf("expected platform 70, got %d", dist.Platform)
	}
}

func TestDistributeRejectsBadSplit(t *testing.T) {
	if _, err := Distribute(10, Split{WinnerPct: 50, PlatformPct: 49}, nil, ""); !errors.Is(err, ErrInvalidSplit) {
		t.Fatalf("expected ErrInvalidSplit, got %v", err)
	}
}

func TestProRataConservesTotal(t *testing.T) {
	shares, err := ProRata(100, []int64{1, 1, 1})
	if err != nil {
		t.Fatalf("prorata failed: %v", err)
	}
	var sum int64
	for _, s := range shares {
		sum += s
	}
	if sum != 100 {
		t.Fatalf("expected shares to sum to 100, got %d", sum)
	}
	// The remainder lands on the largest (first) weight.
	if shares[0] != 34 || shares[1] != 33 || shares[2] != 33 {
		t.Fatalf("unexpected shares %v", shares)
	}
}

func TestProRataRejectsNonPositiveWeight(t *testing.T) {
	if _, err := ProRata(10, []int64{5, 0}); !errors.Is(err, ErrInvalidWeights) {
		t.Fatalf("expected ErrInvalidWeights, got %v", err)
	}
}
