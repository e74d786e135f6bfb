package game

// Inbound command event names, as sent by clients.
const (
	CmdCheckRoom        = "player:checkRoom"
	CmdJoin             = "player:join"
	CmdSelectedAnswer   = "player:selectedAnswer"
	CmdCreateRoom       = "manager:createRoom"
	CmdKickPlayer       = "manager:kickPlayer"
	CmdStartGame        = "manager:startGame"
	CmdAbortQuiz        = "manager:abortQuiz"
	CmdNextQuestion     = "manager:nextQuestion"
	CmdShowLeaderboard  = "manager:showLeaderboard"
	CmdAddQuestion      = "manager:addQuestion"
	CmdEditQuestion     = "manager:editQuestion"
	CmdDeleteQuestion   = "manager:deleteQuestion"
	CmdReplaceQuestions = "manager:replaceQuestions"
)

// Outbound notification event names.
const (
	EventStatus           = "game:status"
	EventError            = "game:errorMessage"
	EventSuccessRoom      = "game:successRoom"
	EventSuccessJoin      = "game:successJoin"
	EventStartCooldown    = "game:startCooldown"
	EventCooldown         = "game:cooldown"
	EventPlayerAnswer     = "game:playerAnswer"
	EventKick             = "game:kick"
	EventReset            = "game:reset"
	EventInviteCode       = "manager:inviteCode"
	EventNewPlayer        = "manager:newPlayer"
	EventRemovePlayer     = "manager:removePlayer"
	EventPlayerKicked     = "manager:playerKicked"
	EventQuestionsUpdated = "manager:questionsUpdated"
)

// Status names carried inside game:status broadcasts.
const (
	StatusShowStart       = "SHOW_START"
	StatusSelectAnswer    = "SELECT_ANSWER"
	StatusShowResponses   = "SHOW_RESPONSES"
	StatusShowLeaderboard = "SHOW_LEADERBOARD"
	StatusFinish          = "FINISH"
)

// Status is the payload of every game:status notification.
type Status struct {
	Name string `json:"name"`
	Data any    `json:"data"`
}

// Emitter delivers a single event to a single connection. The transport
// layer implements it; tests substitute a recorder. Implementations must
// not block the caller.
type Emitter interface {
	Emit(connID, event string, payload any)
}
