package game

import (
	"context"
	"crypto/rand"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"quizroom/internal/domain"
)

const (
	roomCodeLength = 6
	roomCodeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	basePoints      = 1000
	leaderboardSize = 5
	podiumSize      = 3
)

// BankLoader reads a question bank from a backing store.
type BankLoader interface {
	LoadBank(ctx context.Context, name string) (domain.QuestionBank, error)
}

// BankStore persists question banks. SaveBank overwrites the whole bank,
// matching the wholesale rewrite done by replaceQuestions.
type BankStore interface {
	BankLoader
	SaveBank(ctx context.Context, name string, bank domain.QuestionBank) error
}

// Options configures a Coordinator.
type Options struct {
	Password       string
	StartCountdown int // seconds, defaults to 3
	BankName       string
	Store          BankStore
	Emitter        Emitter
	Logger         *zap.Logger
	Now            func() time.Time // test hook
	TickInterval   time.Duration    // test hook, defaults to one second
}

// Coordinator owns the single live Session and drives it through the
// room -> rounds -> leaderboard -> finish lifecycle. Command handlers
// from any connection goroutine serialize on its mutex, so handlers are
// run-to-completion just like a single-threaded event loop. Every
// broadcast payload is a snapshot built under the lock, never a live
// reference into session state.
type Coordinator struct {
	mu sync.Mutex

	log      *zap.Logger
	emit     Emitter
	store    BankStore
	bankName string

	password       string
	startCountdown int
	now            func() time.Time
	tick           time.Duration

	sess       Session
	countdown  *Countdown
	epoch      uint64
	roundStart time.Time
}

func NewCoordinator(opts Options) *Coordinator {
	countdown := opts.StartCountdown
	if countdown <= 0 {
		countdown = 3
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	bankName := opts.BankName
	if bankName == "" {
		bankName = "default"
	}
	emit := opts.Emitter
	if emit == nil {
		emit = nopEmitter{}
	}
	tick := opts.TickInterval
	if tick <= 0 {
		tick = time.Second
	}
	return &Coordinator{
		log:            log,
		emit:           emit,
		store:          opts.Store,
		bankName:       bankName,
		password:       opts.Password,
		startCountdown: countdown,
		now:            now,
		tick:           tick,
	}
}

type nopEmitter struct{}

func (nopEmitter) Emit(string, string, any) {}

// SetEmitter wires the transport in after construction. The relay needs
// the coordinator to dispatch commands, and the coordinator needs the
// relay to emit, so one of them is attached late.
func (c *Coordinator) SetEmitter(e Emitter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emit = e
}

// Bootstrap loads the question bank from the store. A missing or empty
// bank degrades to the built-in default, which is written back so the
// store is seeded for the next start.
func (c *Coordinator) Bootstrap(ctx context.Context) error {
	bank, err := c.store.LoadBank(ctx, c.bankName)
	if err != nil || len(bank.Questions) == 0 {
		if err != nil {
			c.log.Warn("question bank unavailable, using defaults", zap.Error(err))
		}
		bank = domain.DefaultBank()
		if saveErr := c.store.SaveBank(ctx, c.bankName, bank); saveErr != nil {
			c.log.Warn("seeding default question bank failed", zap.Error(saveErr))
		}
	}

	c.mu.Lock()
	c.sess.QuizName = bank.QuizName
	c.sess.Questions = bank.Questions
	c.mu.Unlock()

	c.log.Info("question bank loaded",
		zap.String("quiz", bank.QuizName),
		zap.Int("questions", len(bank.Questions)),
	)
	return nil
}

// State reports the current engine state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.State
}

// InviteCode returns the live room code, if a room exists.
func (c *Coordinator) InviteCode() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.Room, c.sess.active()
}

// Players snapshots the current player list.
func (c *Coordinator) Players() []domain.PlayerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.PlayerInfo, 0, len(c.sess.players))
	for _, p := range c.sess.players {
		out = append(out, domain.PlayerInfo{ID: p.ID, Username: p.Username, Points: p.Points})
	}
	return out
}

// CreateRoom claims the manager role and mints an invite code. The code
// goes to the caller only.
func (c *Coordinator) CreateRoom(connID, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if password != c.password {
		return domain.ErrBadPassword
	}
	if c.sess.Manager != "" || c.sess.active() {
		return domain.ErrRoomExists
	}

	code := newRoomCode()
	c.sess.Room = code
	c.sess.Manager = connID

	c.emit.Emit(connID, EventInviteCode, code)
	c.log.Info("room created", zap.String("room", code))
	return nil
}

// CheckRoom is phase one of joining: validate the invite code.
func (c *Coordinator) CheckRoom(connID, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sess.active() || c.sess.Room != code {
		return domain.ErrRoomNotFound
	}
	c.emit.Emit(connID, EventSuccessRoom, code)
	return nil
}

// Join is phase two: claim a username and enter the room. The manager is
// notified so its player-list view stays consistent with membership.
func (c *Coordinator) Join(connID, username, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sess.active() || c.sess.Room != code {
		return domain.ErrRoomNotFound
	}
	if c.sess.started() {
		return domain.ErrAlreadyStarted
	}
	if c.sess.usernameTaken(username) {
		return domain.ErrUsernameTaken
	}

	p := c.sess.addPlayer(connID, username)
	c.emit.Emit(c.sess.Manager, EventNewPlayer, domain.PlayerInfo{
		ID:       p.ID,
		Username: p.Username,
		Points:   p.Points,
	})
	c.emit.Emit(connID, EventSuccessJoin, code)
	c.log.Info("player joined", zap.String("username", username), zap.String("room", code))
	return nil
}

// KickPlayer removes a player by id. Non-manager callers and unknown ids
// are no-ops, so a retried kick stays idempotent.
func (c *Coordinator) KickPlayer(connID, targetID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if connID != c.sess.Manager || c.sess.Manager == "" {
		return nil
	}
	if !c.sess.removePlayer(targetID) {
		return nil
	}

	c.emit.Emit(targetID, EventKick, nil)
	c.emit.Emit(c.sess.Manager, EventPlayerKicked, targetID)
	c.log.Info("player kicked", zap.String("player", targetID))
	return nil
}

// StartGame begins the pre-game countdown and then the first round.
func (c *Coordinator) StartGame(connID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if connID != c.sess.Manager || c.sess.Manager == "" {
		return domain.ErrNotManager
	}
	if c.sess.started() {
		return domain.ErrAlreadyStarted
	}
	if len(c.sess.Questions) == 0 {
		return domain.ErrNoQuestions
	}

	c.sess.State = StateStarting
	c.sess.Current = 0

	c.broadcastLocked(EventStatus, Status{
		Name: StatusShowStart,
		Data: map[string]any{
			"time":    c.startCountdown,
			"subject": c.sess.QuizName,
		},
	})

	e := c.epoch
	c.countdown = StartCountdown(c.startCountdown, c.tick, nil, func() {
		c.startCooldown(e)
	})
	c.log.Info("game starting", zap.Int("questions", len(c.sess.Questions)))
	return nil
}

// startCooldown runs the synchronized tick phase between SHOW_START and
// the first answering round.
func (c *Coordinator) startCooldown(e uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e != c.epoch || c.sess.State != StateStarting {
		return
	}

	c.broadcastLocked(EventStartCooldown, c.startCountdown)
	c.countdown = StartCountdown(c.startCountdown, c.tick,
		func(remaining int) { c.tickBroadcast(e, StateStarting, remaining) },
		func() { c.beginRound(e) },
	)
}

// beginRound opens the answering window after the starting cooldown.
func (c *Coordinator) beginRound(e uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e != c.epoch || c.sess.State != StateStarting {
		return
	}
	c.beginRoundLocked()
}

func (c *Coordinator) beginRoundLocked() {
	c.sess.State = StateAnswering
	c.sess.clearAnswers()
	c.roundStart = c.now()

	q := c.sess.Questions[c.sess.Current]
	answers := make([]string, len(q.Answers))
	copy(answers, q.Answers)

	c.broadcastLocked(EventStatus, Status{
		Name: StatusSelectAnswer,
		Data: map[string]any{
			"question": q.Question,
			"answers":  answers,
			"image":    q.Image,
			"time":     q.Time,
		},
	})

	e := c.epoch
	c.countdown = StartCountdown(q.Time, c.tick,
		func(remaining int) { c.tickBroadcast(e, StateAnswering, remaining) },
		func() { c.roundTimeout(e) },
	)
	c.log.Info("round started", zap.Int("question", c.sess.Current))
}

// SelectAnswer records a player's submission. Late and duplicate
// submissions are ignored without error. Correct answers score on a
// speed-weighted curve: full basePoints at t=0 decaying linearly to half
// at the time limit, zero when wrong.
func (c *Coordinator) SelectAnswer(connID string, choice int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess.State != StateAnswering {
		return nil
	}
	p := c.sess.playerByID(connID)
	if p == nil || p.answer != nil {
		return nil
	}
	q := c.sess.Questions[c.sess.Current]
	if choice < 0 || choice >= len(q.Answers) {
		return nil
	}

	limit := time.Duration(q.Time) * time.Second
	elapsed := c.now().Sub(c.roundStart)
	if elapsed > limit {
		return nil
	}

	p.answer = &answer{choice: choice, elapsed: elapsed}
	if choice == q.Correct {
		p.Points += scorePoints(elapsed, limit)
	}

	c.broadcastLocked(EventPlayerAnswer, c.sess.answeredCount())

	if c.allAnsweredLocked() {
		c.endRoundLocked()
	}
	return nil
}

func (c *Coordinator) allAnsweredLocked() bool {
	return len(c.sess.players) > 0 && c.sess.answeredCount() == len(c.sess.players)
}

// roundTimeout is the countdown completion path for an answering window.
func (c *Coordinator) roundTimeout(e uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e != c.epoch || c.sess.State != StateAnswering {
		return
	}
	c.endRoundLocked()
}

// endRoundLocked closes the answering window and reveals the tallies.
func (c *Coordinator) endRoundLocked() {
	c.stopCountdownLocked()
	c.sess.State = StateResponses

	result := c.sess.roundResult()
	c.broadcastLocked(EventStatus, Status{
		Name: StatusShowResponses,
		Data: result,
	})
	c.log.Info("round closed",
		zap.Int("question", c.sess.Current),
		zap.Int("responses", len(result.Responses)),
	)
}

// ShowLeaderboard advances from the reveal screen: to the interstitial
// leaderboard when questions remain, straight to the podium otherwise.
func (c *Coordinator) ShowLeaderboard(connID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if connID != c.sess.Manager || c.sess.Manager == "" {
		return domain.ErrNotManager
	}
	if c.sess.State != StateResponses {
		return nil
	}

	if c.sess.Current+1 >= len(c.sess.Questions) {
		c.finishLocked()
		return nil
	}

	c.sess.State = StateLeaderboard
	c.broadcastLocked(EventStatus, Status{
		Name: StatusShowLeaderboard,
		Data: map[string]any{
			"leaderboard": c.sess.leaderboard(leaderboardSize),
			"subject":     c.sess.QuizName,
		},
	})
	return nil
}

// NextQuestion moves to the next answering round. At the last question it
// is a no-op, not an error.
func (c *Coordinator) NextQuestion(connID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if connID != c.sess.Manager || c.sess.Manager == "" {
		return domain.ErrNotManager
	}
	if c.sess.State != StateLeaderboard {
		return nil
	}
	if c.sess.Current+1 >= len(c.sess.Questions) {
		return nil
	}

	c.sess.Current++
	c.beginRoundLocked()
	return nil
}

// finishLocked emits the terminal podium exactly once.
func (c *Coordinator) finishLocked() {
	c.sess.State = StateFinished
	c.broadcastLocked(EventStatus, Status{
		Name: StatusFinish,
		Data: map[string]any{
			"subject":     c.sess.QuizName,
			"top":         c.sess.leaderboard(podiumSize),
			"leaderboard": c.sess.leaderboard(0),
		},
	})
	c.log.Info("quiz finished", zap.Int("players", len(c.sess.players)))
}

// AbortQuiz cancels the running quiz and resets the session. Any pending
// countdown is stopped first so no stale tick fires into the fresh state.
func (c *Coordinator) AbortQuiz(connID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if connID != c.sess.Manager || c.sess.Manager == "" {
		return domain.ErrNotManager
	}
	if !c.sess.started() {
		return nil
	}

	c.resetLocked("quiz aborted")
	return nil
}

// Disconnect handles a dropped connection. A manager disconnect resets
// the whole session, the only failure-recovery path there is; a player
// disconnect removes just that player.
func (c *Coordinator) Disconnect(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if connID == c.sess.Manager && c.sess.Manager != "" {
		c.resetLocked("manager disconnected")
		return
	}

	if c.sess.removePlayer(connID) {
		c.emit.Emit(c.sess.Manager, EventRemovePlayer, connID)
		// The round should not hang on someone who just left.
		if c.sess.State == StateAnswering && c.allAnsweredLocked() {
			c.endRoundLocked()
		}
	}
}

// resetLocked broadcasts game:reset to the room, cancels timers, and
// returns the session to empty. The loaded question bank survives so the
// manager can host again without a reload.
func (c *Coordinator) resetLocked(reason string) {
	c.stopCountdownLocked()
	c.epoch++

	c.broadcastLocked(EventReset, nil)

	quizName := c.sess.QuizName
	questions := c.sess.Questions
	c.sess.reset()
	c.sess.QuizName = quizName
	c.sess.Questions = questions

	c.log.Info("session reset", zap.String("reason", reason))
}

func (c *Coordinator) stopCountdownLocked() {
	if c.countdown != nil {
		c.countdown.Stop()
		c.countdown = nil
	}
}

// broadcastLocked fans an event out to every room connection. Callers
// hold the lock and pass snapshot payloads only.
func (c *Coordinator) broadcastLocked(event string, payload any) {
	for _, id := range c.sess.connIDs() {
		c.emit.Emit(id, event, payload)
	}
}

// tickBroadcast is the countdown-callback variant: it takes the lock and
// drops the tick unless the session is still in the state the countdown
// was started for. A tick racing a reset or an early round close must
// never reach clients.
func (c *Coordinator) tickBroadcast(e uint64, want State, remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e != c.epoch || c.sess.State != want {
		return
	}
	c.broadcastLocked(EventCooldown, remaining)
}

// scorePoints implements the speed-weighted curve: basePoints at t=0,
// decaying linearly to basePoints/2 at the limit. Monotonic decreasing in
// elapsed time.
func scorePoints(elapsed, limit time.Duration) int {
	if limit <= 0 {
		return basePoints
	}
	frac := float64(elapsed) / float64(limit)
	if frac > 1 {
		frac = 1
	}
	return int(math.Round((1 - frac/2) * basePoints))
}

// newRoomCode mints a short uppercase invite code. With a single active
// room there is nothing to collide with.
func newRoomCode() string {
	buf := make([]byte, roomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	out := make([]byte, roomCodeLength)
	for i := range out {
		out[i] = roomCodeChars[int(buf[i])%len(roomCodeChars)]
	}
	return string(out)
}
