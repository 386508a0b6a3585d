package types

// ParticipantView is one roster entry as shown on the scoreboard.
type ParticipantView struct {
	Name         string `json:"name"`
	Score        int    `json:"score"`
	Mistakes     int    `json:"mistakes"`
	Disqualified bool   `json:"disqualified"`
}

// Snapshot is the full client-facing state of one lobby. It is rebuilt (maps
// and slices copied) on every broadcast so observers never share memory with
// the live game state.
type Snapshot struct {
	Code           string            `json:"code"`
	Host           string            `json:"host"`
	Status         string            `json:"status"`
	SessionID      int               `json:"session_id"`
	Participants   []ParticipantView `json:"participants"`
	QuestionNumber int               `json:"question_number,omitempty"`
	TotalQuestions int               `json:"total_questions,omitempty"`
	RevealedText   string            `json:"revealed_text,omitempty"`
	RevealedLength int               `json:"revealed_length,omitempty"`
	TextLength     int               `json:"text_length,omitempty"`
	BuzzHolder     string            `json:"buzz_holder,omitempty"`
	Paused         bool              `json:"paused,omitempty"`
}
