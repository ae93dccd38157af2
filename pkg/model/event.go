package model

import (
	"regexp"
	"strings"

	"github.com/aarondl/opt/null"
)

// Driver is an entrant identity. The refs are only used for display and as
// categorical oracle input.
type Driver struct {
	ID             int    `json:"id"`
	Ref            string `json:"ref"`
	ConstructorID  int    `json:"constructorId"`
	ConstructorRef string `json:"constructorRef"`
}

// Event is a race weekend. The qualifying session and the race share the id.
type Event struct {
	ID        int    `json:"id"`
	Year      int    `json:"year"`
	Round     int    `json:"round"`
	CircuitID int    `json:"circuitId"`
	Name      string `json:"name"`
}

// Before reports whether e took place before other.
func (e Event) Before(other Event) bool {
	if e.Year != other.Year {
		return e.Year < other.Year
	}
	return e.Round < other.Round
}

var grandPrixSuffix = regexp.MustCompile(`\s*grand prix\s*$`)

// NormalizeEventName lower-cases the name and strips a trailing "grand prix".
func NormalizeEventName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSpace(grandPrixSuffix.ReplaceAllString(n, ""))
}

// Entrant is a driver taking part in an event together with the qualifying
// outcome. Grid 0 means unknown.
type Entrant struct {
	Driver             Driver  `json:"driver"`
	Grid               int     `json:"grid"`
	QualifyingPosition int     `json:"qualifyingPosition"`
	Lap                LapTime `json:"lap"`
}

// Result is a classified (or not) race result of a driver.
type Result struct {
	EventID       int
	Year          int
	Round         int
	CircuitID     int
	DriverID      int
	ConstructorID int
	Grid          int
	Position      null.Val[int]
}

// QualifyingLap is a driver's qualifying outcome at one event.
type QualifyingLap struct {
	EventID       int
	Year          int
	Round         int
	CircuitID     int
	DriverID      int
	ConstructorID int
	Position      null.Val[int]
	Best          LapTime // fastest of the drivers session laps
	Final         LapTime // lap of the last session reached
	SessionBest   LapTime // fastest lap of the event
}

// Delta is the gap of the drivers best lap to the session best, rounded to 3 decimals.
func (q QualifyingLap) Delta() null.Val[float64] {
	best, ok := q.Best.Get()
	if !ok {
		return null.Val[float64]{}
	}
	ref, ok := q.SessionBest.Get()
	if !ok {
		return null.Val[float64]{}
	}
	return null.From(Round3(best - ref))
}

// Event returns the event reference of the lap
func (q QualifyingLap) Event() Event {
	return Event{ID: q.EventID, Year: q.Year, Round: q.Round, CircuitID: q.CircuitID}
}

// Event returns the event reference of the result
func (r Result) Event() Event {
	return Event{ID: r.EventID, Year: r.Year, Round: r.Round, CircuitID: r.CircuitID}
}

// Placing is the classified position of a driver in a session.
type Placing struct {
	DriverID int
	Position int
}
