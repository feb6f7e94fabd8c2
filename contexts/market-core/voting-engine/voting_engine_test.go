package votingengine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	votingengine "delphi/contexts/market-core/voting-engine"
	"delphi/contexts/market-core/voting-engine/adapters/memory"
	"delphi/contexts/market-core/voting-engine/application/commands"
	"delphi/contexts/market-core/voting-engine/domain/entities"
	domainerrors "delphi/contexts/market-core/voting-engine/domain/errors"
	"delphi/contexts/market-core/voting-engine/ports"
	"delphi/internal/shared/guard"
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestModule(t *testing.T) (votingengine.Module, *memory.ManualClock) {
	t.Helper()
	clock := memory.NewManualClock(testStart)
	module := votingengine.NewInMemoryModule([]string{"signer-1", "signer-2", "signer-3"}, clock, nil)
	return module, clock
}

func createTestEvent(t *testing.T, module votingengine.Module, stake int64) entities.MarketEvent {
	t.Helper()
	event, err := module.Markets.CreateEvent(context.Background(), commands.CreateEventCommand{
		Creator:         "creator-1",
		Title:           "Will it rain tomorrow?",
		Options:         []string{"A", "B"},
		CommitHours:     24,
		RevealHours:     24,
		StakeAmount:     stake,
		MinParticipants: 3,
	})
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}
	return event
}

func commitVote(
	t *testing.T,
	module votingengine.Module,
	eventID, voter string,
	option int,
	stake int64,
) (salt, nonce []byte) {
	t.Helper()
	salt = make([]byte, entities.SaltLength)
	copy(salt, voter)
	nonce, err := entities.NewNonce()
	if err != nil {
		t.Fatalf("nonce generation failed: %v", err)
	}
	digest := entities.ComputeDigest(option, salt, nonce)
	_, err = module.Markets.PlaceCommitment(context.Background(), commands.PlaceCommitmentCommand{
		Voter:   voter,
		EventID: eventID,
		Digest:  digest,
		Stake:   stake,
		Nonce:   nonce,
	})
	if err != nil {
		t.Fatalf("commitment for %s failed: %v", voter, err)
	}
	return salt, nonce
}

func TestCommitRevealResolveHappyPath(t *testing.T) {
	module, clock := newTestModule(t)
	ctx := context.Background()
	event := createTestEvent(t, module, 10)

	voters := []struct {
		name   string
		option int
	}{
		{"alice", 0},
		{"bob", 0},
		{"carol", 0},
		{"dave", 1},
	}
	salts := make(map[string][]byte)
	for _, voter := range voters {
		module.Bank.SetBalance(voter.name, 10)
		salt, _ := commitVote(t, module, event.EventID, voter.name, voter.option, 10)
		salts[voter.name] = salt
	}

	clock.Advance(25 * time.Hour)
	for _, voter := range voters {
		_, err := module.Markets.RevealVote(ctx, commands.RevealVoteCommand{
			Voter:       voter.name,
			EventID:     event.EventID,
			OptionIndex: voter.option,
			Salt:        salts[voter.name],
		})
		if err != nil {
			t.Fatalf("reveal for %s failed: %v", voter.name, err)
		}
	}

	clock.Advance(25 * time.Hour)
	result, err := module.Markets.ResolveEvent(ctx, commands.ResolveEventCommand{
		Resolver: "signer-1",
		EventID:  event.EventID,
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if result.Event.WinningOption != 0 {
		t.Fatalf("expected option 0 to win, got %d", result.Event.WinningOption)
	}
	if len(result.Winners) != 3 {
		t.Fatalf("expected 3 winners, got %d", len(result.Winners))
	}
	// 80% of 40 = 32, split 3 ways = 10 each; platform takes 8 + remainder 2.
	if result.PerShare != 10 {
		t.Fatalf("expected per-winner share 10, got %d", result.PerShare)
	}
	if result.Platform != 10 {
		t.Fatalf("expected platform amount 10, got %d", result.Platform)
	}
	for _, winner := range []string{"alice", "bob", "carol"} {
		if balance := module.Bank.Balance(winner); balance != 10 {
			t.Fatalf("expected %s payout 10, got %d", winner, balance)
		}
	}
	if balance := module.Bank.Balance("dave"); balance != 0 {
		t.Fatalf("losing voter must not be paid, got %d", balance)
	}
	if module.Bank.PlatformBalance() != 10 {
		t.Fatalf("expected platform balance 10, got %d", module.Bank.PlatformBalance())
	}

	// Resolution is final.
	_, err = module.Markets.ResolveEvent(ctx, commands.ResolveEventCommand{
		Resolver: "signer-2",
		EventID:  event.EventID,
	})
	if !errors.Is(err, domainerrors.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
}

func TestCommitmentBinding(t *testing.T) {
	module, clock := newTestModule(t)
	ctx := context.Background()
	event := createTestEvent(t, module, 10)

	module.Bank.SetBalance("alice", 10)
	salt, _ := commitVote(t, module, event.EventID, "alice", 0, 10)

	clock.Advance(25 * time.Hour)

	wrongSalt := make([]byte, entities.SaltLength)
	copy(wrongSalt, "not-the-salt")
	_, err := module.Markets.RevealVote(ctx, commands.RevealVoteCommand{
		Voter:       "alice",
		EventID:     event.EventID,
		OptionIndex: 0,
		Salt:        wrongSalt,
	})
	if !errors.Is(err, domainerrors.ErrInvalidReveal) {
		t.Fatalf("wrong salt must fail ErrInvalidReveal, got %v", err)
	}

	// Correct pair succeeds exactly once.
	if _, err := module.Markets.RevealVote(ctx, commands.RevealVoteCommand{
		Voter:       "alice",
		EventID:     event.EventID,
		OptionIndex: 0,
		Salt:        salt,
	}); err != nil {
		t.Fatalf("correct reveal failed: %v", err)
	}
	_, err = module.Markets.RevealVote(ctx, commands.RevealVoteCommand{
		Voter:       "alice",
		EventID:     event.EventID,
		OptionIndex: 0,
		Salt:        salt,
	})
	if !errors.Is(err, domainerrors.ErrNotCommitted) {
		t.Fatalf("second reveal must fail ErrNotCommitted, got %v", err)
	}
}

func TestDoubleCommitmentRejected(t *testing.T) {
	module, _ := newTestModule(t)
	event := createTestEvent(t, module, 10)

	module.Bank.SetBalance("alice", 50)
	commitVote(t, module, event.EventID, "alice", 0, 10)

	salt := make([]byte, entities.SaltLength)
	nonce, _ := entities.NewNonce()
	_, err := module.Markets.PlaceCommitment(context.Background(), commands.PlaceCommitmentCommand{
		Voter:   "alice",
		EventID: event.EventID,
		Digest:  entities.ComputeDigest(1, salt, nonce),
		Stake:   10,
		Nonce:   nonce,
	})
	if !errors.Is(err, domainerrors.ErrAlreadyCommitted) {
		t.Fatalf("expected ErrAlreadyCommitted, got %v", err)
	}
}

func TestPhaseGating(t *testing.T) {
	module, clock := newTestModule(t)
	ctx := context.Background()
	event := createTestEvent(t, module, 10)

	module.Bank.SetBalance("alice", 10)
	salt, _ := commitVote(t, module, event.EventID, "alice", 0, 10)

	// Reveal before commit phase ends.
	_, err := module.Markets.RevealVote(ctx, commands.RevealVoteCommand{
		Voter:       "alice",
		EventID:     event.EventID,
		OptionIndex: 0,
		Salt:        salt,
	})
	if !errors.Is(err, domainerrors.ErrCommitPhaseOpen) {
		t.Fatalf("expected ErrCommitPhaseOpen, got %v", err)
	}

	// Commit after commit phase ends.
	clock.Advance(25 * time.Hour)
	module.Bank.SetBalance("bob", 10)
	bobNonce, _ := entities.NewNonce()
	_, err = module.Markets.PlaceCommitment(ctx, commands.PlaceCommitmentCommand{
		Voter:   "bob",
		EventID: event.EventID,
		Digest:  entities.ComputeDigest(0, salt, bobNonce),
		Stake:   10,
		Nonce:   bobNonce,
	})
	if !errors.Is(err, domainerrors.ErrCommitPhaseClosed) {
		t.Fatalf("expected ErrCommitPhaseClosed, got %v", err)
	}

	// Reveal after reveal phase ends.
	clock.Advance(25 * time.Hour)
	_, err = module.Markets.RevealVote(ctx, commands.RevealVoteCommand{
		Voter:       "alice",
		EventID:     event.EventID,
		OptionIndex: 0,
		Salt:        salt,
	})
	if !errors.Is(err, domainerrors.ErrRevealPhaseClosed) {
		t.Fatalf("expected ErrRevealPhaseClosed, got %v", err)
	}
}

func TestStakeMustMatchEventStake(t *testing.T) {
	module, _ := newTestModule(t)
	event := createTestEvent(t, module, 10)

	module.Bank.SetBalance("alice", 100)
	salt := make([]byte, entities.SaltLength)
	nonce, _ := entities.NewNonce()
	_, err := module.Markets.PlaceCommitment(context.Background(), commands.PlaceCommitmentCommand{
		Voter:   "alice",
		EventID: event.EventID,
		Digest:  entities.ComputeDigest(0, salt, nonce),
		Stake:   20,
		Nonce:   nonce,
	})
	if !errors.Is(err, domainerrors.ErrInvalidStake) {
		t.Fatalf("expected ErrInvalidStake, got %v", err)
	}
}

func TestResolveTimingAndAuthorization(t *testing.T) {
	module, clock := newTestModule(t)
	ctx := context.Background()
	event := createTestEvent(t, module, 10)

	_, err := module.Markets.ResolveEvent(ctx, commands.ResolveEventCommand{
		Resolver: "signer-1",
		EventID:  event.EventID,
	})
	if !errors.Is(err, domainerrors.ErrVotingNotEnded) {
		t.Fatalf("expected ErrVotingNotEnded, got %v", err)
	}

	clock.Advance(50 * time.Hour)
	_, err = module.Markets.ResolveEvent(ctx, commands.ResolveEventCommand{
		Resolver: "mallory",
		EventID:  event.EventID,
	})
	if !errors.Is(err, domainerrors.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	_, err = module.Markets.ResolveEvent(ctx, commands.ResolveEventCommand{
		Resolver: "signer-1",
		EventID:  event.EventID,
	})
	if !errors.Is(err, domainerrors.ErrInsufficientParticipants) {
		t.Fatalf("expected ErrInsufficientParticipants, got %v", err)
	}
}

func TestResolutionDeterministicTieBreak(t *testing.T) {
	module, clock := newTestModule(t)
	ctx := context.Background()

	event, err := module.Markets.CreateEvent(ctx, commands.CreateEventCommand{
		Creator:         "creator-1",
		Title:           "Three-way market",
		Options:         []string{"A", "B", "C"},
		CommitHours:     24,
		RevealHours:     24,
		StakeAmount:     10,
		MinParticipants: 3,
	})
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}

	// Two reveals each for B and C, none for A: tie breaks to B (lowest index).
	votersByOption := map[string]int{"v1": 1, "v2": 2, "v3": 1, "v4": 2}
	salts := make(map[string][]byte)
	for voter, option := range votersByOption {
		module.Bank.SetBalance(voter, 10)
		salt, _ := commitVote(t, module, event.EventID, voter, option, 10)
		salts[voter] = salt
	}
	clock.Advance(25 * time.Hour)
	for voter, option := range votersByOption {
		if _, err := module.Markets.RevealVote(ctx, commands.RevealVoteCommand{
			Voter:       voter,
			EventID:     event.EventID,
			OptionIndex: option,
			Salt:        salts[voter],
		}); err != nil {
			t.Fatalf("reveal for %s failed: %v", voter, err)
		}
	}
	clock.Advance(25 * time.Hour)

	result, err := module.Markets.ResolveEvent(ctx, commands.ResolveEventCommand{
		Resolver: "signer-1",
		EventID:  event.EventID,
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if result.Event.WinningOption != 1 {
		t.Fatalf("tie must break to lowest index 1, got %d", result.Event.WinningOption)
	}
}

func TestCancelRefundsCommittedStakes(t *testing.T) {
	module, clock := newTestModule(t)
	ctx := context.Background()
	event := createTestEvent(t, module, 10)

	module.Bank.SetBalance("alice", 10)
	module.Bank.SetBalance("bob", 10)
	commitVote(t, module, event.EventID, "alice", 0, 10)
	commitVote(t, module, event.EventID, "bob", 1, 10)

	clock.Advance(50 * time.Hour)
	cancelled, err := module.Markets.CancelEvent(ctx, commands.CancelEventCommand{
		Canceller: "signer-1",
		EventID:   event.EventID,
	})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if !cancelled.Resolved || cancelled.WinningOption != -1 {
		t.Fatalf("cancelled event must close with no winner")
	}
	if module.Bank.Balance("alice") != 10 || module.Bank.Balance("bob") != 10 {
		t.Fatalf("cancel must refund every committed stake")
	}
}

func TestPauseAndRateLimitBlockCreation(t *testing.T) {
	module, _ := newTestModule(t)
	ctx := context.Background()

	module.Status.SetPaused(true)
	_, err := module.Markets.CreateEvent(ctx, commands.CreateEventCommand{
		Creator:         "creator-1",
		Title:           "Paused market",
		Options:         []string{"A", "B"},
		CommitHours:     24,
		RevealHours:     24,
		StakeAmount:     10,
		MinParticipants: 3,
	})
	if !errors.Is(err, domainerrors.ErrSystemPaused) {
		t.Fatalf("expected ErrSystemPaused, got %v", err)
	}
	module.Status.SetPaused(false)

	for i := 0; i < 5; i++ {
		createTestEvent(t, module, 10)
	}
	_, err = module.Markets.CreateEvent(ctx, commands.CreateEventCommand{
		Creator:         "creator-1",
		Title:           "One too many",
		Options:         []string{"A", "B"},
		CommitHours:     24,
		RevealHours:     24,
		StakeAmount:     10,
		MinParticipants: 3,
	})
	if !errors.Is(err, domainerrors.ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
}

func TestInsufficientAccountBalanceAbortsCommitment(t *testing.T) {
	module, _ := newTestModule(t)
	event := createTestEvent(t, module, 10)

	// No balance funded for alice: escrow funding fails and no commitment is
	// recorded.
	salt := make([]byte, entities.SaltLength)
	nonce, _ := entities.NewNonce()
	_, err := module.Markets.PlaceCommitment(context.Background(), commands.PlaceCommitmentCommand{
		Voter:   "alice",
		EventID: event.EventID,
		Digest:  entities.ComputeDigest(0, salt, nonce),
		Stake:   10,
		Nonce:   nonce,
	})
	if err == nil {
		t.Fatalf("expected funding failure")
	}
	stored, err := module.Store.GetEvent(context.Background(), event.EventID)
	if err != nil {
		t.Fatalf("get event failed: %v", err)
	}
	if len(stored.Commitments) != 0 || stored.TotalStaked != 0 {
		t.Fatalf("failed funding must leave event unchanged")
	}
}

// atomicEventStore commits the market event and its outbox rows in one call,
// the way the postgres repository does inside a transaction.
type atomicEventStore struct {
	*memory.Store
	commits   int
	envelopes int
}

func (s *atomicEventStore) SaveEventAndOutbox(ctx context.Context, event entities.MarketEvent, envelopes []ports.EventEnvelope) error {
	if err := s.Store.SaveEvent(ctx, event); err != nil {
		return err
	}
	for _, envelope := range envelopes {
		if err := s.Store.AppendOutbox(ctx, envelope); err != nil {
			return err
		}
	}
	s.commits++
	s.envelopes += len(envelopes)
	return nil
}

type failingOutbox struct{}

func (failingOutbox) AppendOutbox(context.Context, ports.EventEnvelope) error {
	return errors.New("outbox append rejected")
}

func TestMarketEventsCommitWithStateChange(t *testing.T) {
	clock := memory.NewManualClock(testStart)
	store := &atomicEventStore{Store: memory.NewStore()}
	bank := memory.NewEscrowBank()
	module := votingengine.NewModule(votingengine.Dependencies{
		Events:   store,
		Treasury: bank,
		Status:   &memory.StatusFlag{},
		Signers:  memory.NewSignerSet("signer-1"),
		Outbox:   failingOutbox{},
		Guard:    guard.New(),
		Clock:    clock,
		IDGen:    memory.UUIDGenerator{},
	})
	module.Bank = bank
	ctx := context.Background()

	// Every state change goes through the atomic path; the standalone outbox
	// writer would fail if it were ever consulted.
	event := createTestEvent(t, module, 10)
	for _, voter := range []string{"alice", "bob", "carol"} {
		bank.SetBalance(voter, 10)
	}
	saltA, _ := commitVote(t, module, event.EventID, "alice", 0, 10)
	saltB, _ := commitVote(t, module, event.EventID, "bob", 0, 10)
	saltC, _ := commitVote(t, module, event.EventID, "carol", 1, 10)

	clock.Advance(25 * time.Hour)
	reveals := []struct {
		voter  string
		option int
		salt   []byte
	}{
		{"alice", 0, saltA},
		{"bob", 0, saltB},
		{"carol", 1, saltC},
	}
	for _, reveal := range reveals {
		if _, err := module.Markets.RevealVote(ctx, commands.RevealVoteCommand{
			Voter:       reveal.voter,
			EventID:     event.EventID,
			OptionIndex: reveal.option,
			Salt:        reveal.salt,
		}); err != nil {
			t.Fatalf("reveal for %s failed: %v", reveal.voter, err)
		}
	}

	clock.Advance(25 * time.Hour)
	if _, err := module.Markets.ResolveEvent(ctx, commands.ResolveEventCommand{
		Resolver: "signer-1",
		EventID:  event.EventID,
	}); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	// Create, three commitments, three reveals, one resolution.
	if store.commits != 8 {
		t.Fatalf("expected 8 atomic commits, got %d", store.commits)
	}
	// Resolution carries both the resolved and rewards-distributed events.
	if store.envelopes != 9 {
		t.Fatalf("expected 9 outbox envelopes, got %d", store.envelopes)
	}
}
