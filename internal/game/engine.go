package game

import (
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjackd/internal/deck"
)

// Engine is the authoritative state machine for one rule variant. All
// methods mutate the passed state in place; callers snapshot with
// Clone before applying an operation when they need a before image.
//
// The engine validates its own preconditions and returns typed errors,
// but it is not trusted across writers: the validate package re-checks
// every published transition from snapshots alone.
type Engine struct {
	rules  Rules
	rng    *rand.Rand
	logger *log.Logger
}

// NewEngine creates an engine for the given rule variant.
func NewEngine(rules Rules, rng *rand.Rand, logger *log.Logger) *Engine {
	return &Engine{
		rules:  rules,
		rng:    rng,
		logger: logger.WithPrefix("engine"),
	}
}

// Rules returns the engine's rule variant.
func (e *Engine) Rules() Rules {
	return e.rules
}

// FreshDeck builds and shuffles a new single deck.
func (e *Engine) FreshDeck() []deck.Card {
	return deck.Shuffle(deck.New(), e.rng)
}

// ProcessBet escrows a wager for a player. Legal only during betting.
// Re-betting replaces the previous wager.
func (e *Engine) ProcessBet(state *GameState, playerID string, amount int) error {
	if state.Phase != PhaseBetting {
		return &InvalidPhaseError{Op: "bet", Phase: state.Phase}
	}
	idx, ok := state.FindPlayer(playerID)
	if !ok {
		return &PlayerNotFoundError{PlayerID: playerID}
	}
	p := &state.Players[idx]

	// Release any previous wager before validating the new one, so a
	// player can re-bet up to their full balance.
	available := p.Chips + p.Bet

	switch {
	case amount < 1:
		return &InvalidBetError{Amount: amount, Chips: available, Reason: "bet must be at least 1"}
	case amount < e.rules.MinBet:
		return &InvalidBetError{Amount: amount, Chips: available, Reason: "below table minimum"}
	case e.rules.MaxBet > 0 && amount > e.rules.MaxBet:
		return &InvalidBetError{Amount: amount, Chips: available, Reason: "above table maximum"}
	case amount > available:
		return &InvalidBetError{Amount: amount, Chips: available, Reason: "insufficient chips"}
	}

	p.Chips = available - amount
	p.Bet = amount
	e.recordAction(state, playerID, "bet")

	e.logger.Debug("Bet placed", "table", state.TableID, "player", playerID, "amount", amount)
	return nil
}

// StartDealing deals the opening cards: every betting player's first
// card, the dealer's hole card (face down), every betting player's
// second card, then the dealer's up card. This exact order fixes deck
// consumption. Moves the game into the dealing phase.
func (e *Engine) StartDealing(state *GameState) error {
	if state.Phase != PhaseBetting {
		return &InvalidPhaseError{Op: "deal", Phase: state.Phase}
	}
	if state.BettingPlayerCount() == 0 {
		return &IllegalActionError{Op: "deal", Reason: "no bets placed"}
	}

	// First card to each betting player.
	for i := range state.Players {
		if state.Players[i].Bet == 0 {
			continue
		}
		card, err := e.draw(state)
		if err != nil {
			return err
		}
		state.Players[i].Hand = state.Players[i].Hand.AddCard(card)
	}

	// Dealer hole card, face down.
	hole, err := e.draw(state)
	if err != nil {
		return err
	}
	hole.Hidden = true
	state.Dealer = state.Dealer.AddCard(hole)

	// Second card to each betting player.
	for i := range state.Players {
		if state.Players[i].Bet == 0 {
			continue
		}
		card, err := e.draw(state)
		if err != nil {
			return err
		}
		state.Players[i].Hand = state.Players[i].Hand.AddCard(card)
	}

	// Dealer up card.
	up, err := e.draw(state)
	if err != nil {
		return err
	}
	state.Dealer = state.Dealer.AddCard(up)

	state.Phase = PhaseDealing
	e.recordAction(state, "", "deal")

	e.logger.Debug("Dealt opening cards",
		"table", state.TableID,
		"players", state.BettingPlayerCount(),
		"deckRemaining", len(state.Deck))
	return nil
}

// BeginPlay computes per-player double/split eligibility and hands the
// turn to the first betting player. Moves dealing → playing.
func (e *Engine) BeginPlay(state *GameState) error {
	if state.Phase != PhaseDealing {
		return &InvalidPhaseError{Op: "play", Phase: state.Phase}
	}

	for i := range state.Players {
		p := &state.Players[i]
		if p.Bet == 0 {
			continue
		}
		p.IsPlayingMainHand = true
		p.CanDouble = e.canDouble(p, p.Hand)
		p.CanSplit = e.canSplit(p)
	}

	state.Phase = PhasePlaying
	state.CurrentPlayerIndex = e.firstBettingIndex(state)
	e.recordAction(state, "", "play")
	return nil
}

// ProcessPlayerAction applies one decision by the acting player. Only
// the player at CurrentPlayerIndex may act. When the last player's
// turn finishes this also plays out the dealer, leaving the state in
// the dealer phase for the caller to settle.
func (e *Engine) ProcessPlayerAction(state *GameState, playerID string, action Action) error {
	if state.Phase != PhasePlaying {
		return &InvalidPhaseError{Op: action.String(), Phase: state.Phase}
	}
	idx, ok := state.FindPlayer(playerID)
	if !ok {
		return &PlayerNotFoundError{PlayerID: playerID}
	}
	if idx != state.CurrentPlayerIndex {
		return &NotPlayersTurnError{PlayerID: playerID}
	}
	p := &state.Players[idx]

	switch action {
	case Hit:
		if err := e.applyHit(state, p); err != nil {
			return err
		}
	case Stand:
		e.applyStand(state, p)
	case Double:
		if err := e.applyDouble(state, p); err != nil {
			return err
		}
	case Split:
		if err := e.applySplit(state, p); err != nil {
			return err
		}
	case Surrender:
		if err := e.applySurrender(state, p); err != nil {
			return err
		}
	default:
		return &IllegalActionError{Op: action.String(), Reason: "unsupported action"}
	}

	e.recordAction(state, playerID, action.String())
	e.logger.Debug("Player action",
		"table", state.TableID,
		"player", playerID,
		"action", action,
		"handValue", p.ActiveHand().Value)
	return nil
}

// ProcessInsurance places an insurance side bet. Legal only for the
// acting player, before any other action on a two-card hand, when the
// dealer shows an ace and the variant allows insurance. Pays 2:1 at
// settlement if the dealer has blackjack.
func (e *Engine) ProcessInsurance(state *GameState, playerID string, amount int) error {
	if state.Phase != PhasePlaying {
		return &InvalidPhaseError{Op: "insurance", Phase: state.Phase}
	}
	idx, ok := state.FindPlayer(playerID)
	if !ok {
		return &PlayerNotFoundError{PlayerID: playerID}
	}
	if idx != state.CurrentPlayerIndex {
		return &NotPlayersTurnError{PlayerID: playerID}
	}
	p := &state.Players[idx]

	switch {
	case !e.rules.InsuranceAllowed:
		return &IllegalActionError{Op: "insurance", Reason: "insurance not offered at this table"}
	case !e.dealerShowsAce(state):
		return &IllegalActionError{Op: "insurance", Reason: "dealer is not showing an ace"}
	case len(p.Hand.Cards) != 2 || p.HasSplit:
		return &IllegalActionError{Op: "insurance", Reason: "insurance must be the first decision"}
	case p.InsuranceBet > 0:
		return &IllegalActionError{Op: "insurance", Reason: "insurance already placed"}
	case amount < 1 || amount > p.Bet/2:
		return &IllegalActionError{Op: "insurance", Reason: "insurance is limited to half the bet"}
	case amount > p.Chips:
		return &IllegalActionError{Op: "insurance", Reason: "insufficient chips"}
	}

	p.Chips -= amount
	p.InsuranceBet = amount
	e.recordAction(state, playerID, "insurance")
	return nil
}

// CalculateResults settles every wager against the dealer's final hand
// and pays out. Moves dealer → finished. This is the only transition
// on which chip balances may increase.
func (e *Engine) CalculateResults(state *GameState) error {
	if state.Phase != PhaseDealer {
		return &InvalidPhaseError{Op: "settle", Phase: state.Phase}
	}

	for i := range state.Players {
		p := &state.Players[i]
		if p.TotalWagered() == 0 {
			continue
		}

		payout := 0
		switch {
		case p.Surrendered:
			payout += p.Bet / 2
		default:
			payout += e.settleHand(p.Hand, p.Bet, state.Dealer)
			if p.SplitHand != nil {
				payout += e.settleHand(*p.SplitHand, p.SplitBet, state.Dealer)
			}
		}
		if p.InsuranceBet > 0 && state.Dealer.IsBlackjack {
			payout += 3 * p.InsuranceBet
		}

		p.LastHandWinnings = payout - p.TotalWagered()
		p.Chips += payout

		e.logger.Debug("Settled player",
			"table", state.TableID,
			"player", p.ID,
			"wagered", p.TotalWagered(),
			"payout", payout)
	}

	state.Phase = PhaseFinished
	e.recordAction(state, "", "settle")
	return nil
}

// InitializeRound resets hands and bets for the next round, preserving
// chip balances, and rebuilds a fresh shuffled deck. Moves finished →
// betting and increments the round counter.
func (e *Engine) InitializeRound(state *GameState) error {
	if state.Phase != PhaseFinished {
		return &InvalidPhaseError{Op: "next round", Phase: state.Phase}
	}

	for i := range state.Players {
		state.Players[i].resetForRound()
	}
	state.Dealer = deck.NewHand()
	state.Deck = e.FreshDeck()
	state.Round++
	state.Phase = PhaseBetting
	state.CurrentPlayerIndex = -1
	e.recordAction(state, "", "new round")

	e.logger.Debug("New round", "table", state.TableID, "round", state.Round)
	return nil
}

// AddPlayer seats a new player. A player joining mid-round sits out
// (bet 0) until the next betting phase.
func (e *Engine) AddPlayer(state *GameState, p Player) error {
	if _, exists := state.FindPlayer(p.ID); exists {
		return &IllegalActionError{Op: "join", Reason: "player already seated"}
	}
	p.Hand = deck.NewHand()
	p.IsPlayingMainHand = true
	p.Position = len(state.Players)
	p.IsConnected = true
	p.LastSeen = time.Now()
	state.Players = append(state.Players, p)
	if state.PlayerConnections == nil {
		state.PlayerConnections = make(map[string]bool)
	}
	state.PlayerConnections[p.UserID] = true
	return nil
}

// RemovePlayer vacates a seat. An escrowed bet is forfeited. If it was
// the leaving player's turn the turn advances; indices shift down for
// later seats.
func (e *Engine) RemovePlayer(state *GameState, playerID string) error {
	idx, ok := state.FindPlayer(playerID)
	if !ok {
		return &PlayerNotFoundError{PlayerID: playerID}
	}
	wasTurn := state.Phase == PhasePlaying && idx == state.CurrentPlayerIndex

	delete(state.PlayerConnections, state.Players[idx].UserID)
	state.Players = append(state.Players[:idx], state.Players[idx+1:]...)
	for i := range state.Players {
		state.Players[i].Position = i
	}

	switch {
	case state.CurrentPlayerIndex > idx:
		state.CurrentPlayerIndex--
	case wasTurn:
		// The departed seat held the turn; hand it to the next bettor
		// starting from the same index, or play the dealer out.
		state.CurrentPlayerIndex--
		e.advanceTurn(state)
	}
	return nil
}

// SetConnected updates a player's liveness flag. Disconnection does
// not vacate the seat.
func (e *Engine) SetConnected(state *GameState, playerID string, connected bool) error {
	idx, ok := state.FindPlayer(playerID)
	if !ok {
		return &PlayerNotFoundError{PlayerID: playerID}
	}
	p := &state.Players[idx]
	p.IsConnected = connected
	p.LastSeen = time.Now()
	if state.PlayerConnections == nil {
		state.PlayerConnections = make(map[string]bool)
	}
	state.PlayerConnections[p.UserID] = connected
	return nil
}

// --- actions ---

func (e *Engine) applyHit(state *GameState, p *Player) error {
	card, err := e.draw(state)
	if err != nil {
		return err
	}
	hand := p.ActiveHand()
	*hand = hand.AddCard(card)
	p.CanDouble = false
	p.CanSplit = false

	if hand.IsBusted {
		e.finishHand(state, p)
	}
	return nil
}

func (e *Engine) applyStand(state *GameState, p *Player) {
	e.finishHand(state, p)
}

func (e *Engine) applyDouble(state *GameState, p *Player) error {
	if !p.CanDouble {
		return &IllegalActionError{Op: "double", Reason: "double not available"}
	}
	bet := p.ActiveBet()
	if p.Chips < *bet {
		return &IllegalActionError{Op: "double", Reason: "insufficient chips"}
	}

	p.Chips -= *bet
	*bet *= 2

	card, err := e.draw(state)
	if err != nil {
		return err
	}
	hand := p.ActiveHand()
	*hand = hand.AddCard(card)
	p.CanDouble = false
	p.CanSplit = false

	// Doubling takes exactly one card; the hand is over either way.
	e.finishHand(state, p)
	return nil
}

func (e *Engine) applySplit(state *GameState, p *Player) error {
	if !p.CanSplit {
		return &IllegalActionError{Op: "split", Reason: "split not available"}
	}
	if p.Chips < p.Bet {
		return &IllegalActionError{Op: "split", Reason: "insufficient chips"}
	}

	first, second := p.Hand.Cards[0], p.Hand.Cards[1]
	splitAces := first.IsAce()

	// Escrow the second wager.
	p.Chips -= p.Bet
	p.SplitBet = p.Bet
	p.HasSplit = true
	p.IsPlayingMainHand = true

	// One new card to each half.
	main := deck.NewSplitHand(first)
	card, err := e.draw(state)
	if err != nil {
		return err
	}
	main = main.AddCard(card)

	split := deck.NewSplitHand(second)
	card, err = e.draw(state)
	if err != nil {
		return err
	}
	split = split.AddCard(card)

	p.Hand = main
	p.SplitHand = &split

	p.CanSplit = false
	p.CanDouble = e.canDoubleAfterSplit(p, p.Hand, splitAces)
	return nil
}

func (e *Engine) applySurrender(state *GameState, p *Player) error {
	if !e.rules.SurrenderAllowed {
		return &IllegalActionError{Op: "surrender", Reason: "surrender not offered at this table"}
	}
	if len(p.Hand.Cards) != 2 || p.HasSplit {
		return &IllegalActionError{Op: "surrender", Reason: "surrender must be the first decision"}
	}
	// Half the bet comes back at settlement; the escrow stays intact
	// until then so chips never increase mid-round.
	p.Surrendered = true
	p.CanDouble = false
	p.CanSplit = false
	e.advanceTurn(state)
	return nil
}

// finishHand resolves the end of the active hand: move focus to an
// unplayed split hand, or advance the turn.
func (e *Engine) finishHand(state *GameState, p *Player) {
	if p.HasSplit && p.IsPlayingMainHand {
		p.IsPlayingMainHand = false
		splitAces := p.SplitHand.Cards[0].IsAce()
		p.CanDouble = e.canDoubleAfterSplit(p, *p.SplitHand, splitAces)
		return
	}
	e.advanceTurn(state)
}

// advanceTurn hands the turn to the next betting player, or plays out
// the dealer when no players remain.
func (e *Engine) advanceTurn(state *GameState) {
	for i := state.CurrentPlayerIndex + 1; i < len(state.Players); i++ {
		if state.Players[i].Bet > 0 && !state.Players[i].Surrendered {
			state.CurrentPlayerIndex = i
			p := &state.Players[i]
			p.IsPlayingMainHand = true
			p.CanDouble = e.canDouble(p, p.Hand)
			p.CanSplit = e.canSplit(p)
			return
		}
	}
	e.playDealer(state)
}

// playDealer reveals the hole card and draws by house rule. The dealer
// only draws when at least one wager is still live; with every hand
// busted or surrendered there is nothing left to beat.
func (e *Engine) playDealer(state *GameState) {
	state.Phase = PhaseDealer
	state.CurrentPlayerIndex = -1
	state.Dealer = state.Dealer.Reveal()

	if !e.anyLiveHand(state) {
		return
	}
	for e.rules.DealerMustHit(state.Dealer) && len(state.Deck) > 0 {
		card, err := e.draw(state)
		if err != nil {
			return
		}
		state.Dealer = state.Dealer.AddCard(card)
	}

	e.logger.Debug("Dealer played",
		"table", state.TableID,
		"value", state.Dealer.Value,
		"busted", state.Dealer.IsBusted)
}

// --- helpers ---

func (e *Engine) draw(state *GameState) (deck.Card, error) {
	card, remaining, err := deck.Deal(state.Deck)
	if err != nil {
		return deck.Card{}, err
	}
	state.Deck = remaining
	return card, nil
}

// canDouble is the deal-time eligibility: two cards, no natural, and
// the post-escrow balance covers a matching wager.
func (e *Engine) canDouble(p *Player, h deck.Hand) bool {
	if len(h.Cards) != 2 || h.IsBlackjack {
		return false
	}
	if p.Chips < p.Bet {
		return false
	}
	if e.rules.DoubleOnAnyTwoCards {
		return true
	}
	return h.Value >= 9 && h.Value <= 11
}

// canDoubleAfterSplit applies the split-hand double policy: gated by
// doubleAfterSplit, and additionally by doubleAfterSplitAces when the
// split pair was aces.
func (e *Engine) canDoubleAfterSplit(p *Player, h deck.Hand, splitAces bool) bool {
	if !e.rules.DoubleAfterSplit {
		return false
	}
	if splitAces && !e.rules.DoubleAfterSplitAces {
		return false
	}
	bet := p.Bet
	if !p.IsPlayingMainHand {
		bet = p.SplitBet
	}
	if p.Chips < bet {
		return false
	}
	if len(h.Cards) != 2 {
		return false
	}
	if e.rules.DoubleOnAnyTwoCards {
		return true
	}
	return h.Value >= 9 && h.Value <= 11
}

// canSplit requires a two-card pair by rank value (any two ten-value
// cards pair) and chips to escrow the second wager.
func (e *Engine) canSplit(p *Player) bool {
	if p.HasSplit || e.rules.MaxSplits < 1 {
		return false
	}
	if len(p.Hand.Cards) != 2 {
		return false
	}
	if p.Hand.Cards[0].Rank.BaseValue() != p.Hand.Cards[1].Rank.BaseValue() {
		return false
	}
	return p.Chips >= p.Bet
}

// settleHand returns the payout for one hand: stake plus winnings on a
// win, the stake back on a push, nothing on a loss.
func (e *Engine) settleHand(h deck.Hand, bet int, dealer deck.Hand) int {
	if bet == 0 || h.IsBusted {
		return 0
	}
	switch {
	case h.IsBlackjack && dealer.IsBlackjack:
		return bet
	case h.IsBlackjack:
		return bet + int(float64(bet)*e.rules.BlackjackPayout)
	case dealer.IsBlackjack:
		return 0
	case dealer.IsBusted:
		return 2 * bet
	case h.Value > dealer.Value:
		return 2 * bet
	case h.Value == dealer.Value:
		return bet
	default:
		return 0
	}
}

func (e *Engine) anyLiveHand(state *GameState) bool {
	for i := range state.Players {
		p := &state.Players[i]
		if p.Surrendered {
			continue
		}
		if p.Bet > 0 && !p.Hand.IsBusted {
			return true
		}
		if p.SplitHand != nil && p.SplitBet > 0 && !p.SplitHand.IsBusted {
			return true
		}
	}
	return false
}

func (e *Engine) firstBettingIndex(state *GameState) int {
	for i := range state.Players {
		if state.Players[i].Bet > 0 {
			return i
		}
	}
	return -1
}

func (e *Engine) dealerShowsAce(state *GameState) bool {
	for _, c := range state.Dealer.Cards {
		if !c.Hidden && c.IsAce() {
			return true
		}
	}
	return false
}

func (e *Engine) recordAction(state *GameState, playerID, action string) {
	state.LastAction = action
	state.LastActionPlayerID = playerID
	state.LastActionTimestamp = time.Now()
}
