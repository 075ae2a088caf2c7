package domain

// XP awards per event. An incorrect answer still earns a flat participation
// award, carried over from the original scoring.
const (
	xpEasyCorrect   = 50
	xpMediumCorrect = 100
	xpHardCorrect   = 150
	xpParticipation = 10

	xpSimulationBase    = 200
	xpSimulationPerFlag = 25
)

// AnswerXP returns the XP award for an answered quiz question.
func AnswerXP(d Difficulty, correct bool) int {
	if !correct {
		return xpParticipation
	}
	switch d {
	case DifficultyMedium:
		return xpMediumCorrect
	case DifficultyHard:
		return xpHardCorrect
	default:
		return xpEasyCorrect
	}
}

// SimulationXP returns the XP award for a completed phishing simulation.
func SimulationXP(flagsFound int) int {
	if flagsFound < 0 {
		flagsFound = 0
	}
	return xpSimulationBase + xpSimulationPerFlag*flagsFound
}
