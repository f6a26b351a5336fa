package entity

import "time"

// MatchResult is the final outcome handed to persistence once a session
// finishes. It outlives the session itself so late queries still resolve.
type MatchResult struct {
	SessionID  string    `json:"sessionId"`
	Winner     string    `json:"winner"`
	Player1    string    `json:"player1"`
	Player2    string    `json:"player2"`
	P1Score    int       `json:"p1Score"`
	P2Score    int       `json:"p2Score"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Result - builds the match result of a finished session.
func (that *Session) Result(now time.Time) *MatchResult {
	if !that.IsFinished() {
		return nil
	}

	p1, p2 := that.Scores()

	result := &MatchResult{
		SessionID:  that.ID,
		Winner:     that.Winner,
		P1Score:    p1,
		P2Score:    p2,
		FinishedAt: now,
	}

	if that.Players[0] != nil {
		result.Player1 = that.Players[0].Name
	}

	if that.Players[1] != nil {
		result.Player2 = that.Players[1].Name
	}

	return result
}
