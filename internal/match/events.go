package match

// EventType is the event-log vocabulary shared by the live engine and the
// replay parser.
type EventType string

const (
	EventStartMatch       EventType = "startMatch"
	EventEndMatch         EventType = "endMatch"
	EventStartHalf        EventType = "startHalf"
	EventEndHalf          EventType = "endHalf"
	EventStartTurn        EventType = "startTurn"
	EventEndTurn          EventType = "endTurn"
	EventWonKickoff       EventType = "wonKickoff"
	EventPassBall         EventType = "passBall"
	EventLostBall         EventType = "lostBall"
	EventShotGoal         EventType = "shotGoal"
	EventShotFailed       EventType = "shotFailed"
	EventDuelSuccess      EventType = "fwDfDuelSuccess"
	EventDuelFailed       EventType = "fwDfDuelFailed"
	EventDecrementStamina EventType = "decrementStamina"
	EventIncrementRage    EventType = "incrementRage"
)

// EventTypes lists every recognized event type.
var EventTypes = []EventType{
	EventStartMatch, EventEndMatch, EventStartHalf, EventEndHalf,
	EventStartTurn, EventEndTurn, EventWonKickoff, EventPassBall,
	EventLostBall, EventShotGoal, EventShotFailed, EventDuelSuccess,
	EventDuelFailed, EventDecrementStamina, EventIncrementRage,
}

// Event is one notable moment of a match, expressed in event-log terms.
type Event struct {
	Type   EventType
	Params []string
}

// EventSink receives engine events after the tick that produced them has
// been committed.
type EventSink func(Event)
