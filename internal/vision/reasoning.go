package vision

import "fmt"

type finishTone int

const (
	finishWarm finishTone = iota
	finishCool
	finishNeutral
)

func finishOf(c Colourway) finishTone {
	f, err := ParseHex(c.Hex)
	if err != nil {
		return finishNeutral
	}
	switch w := frameWarmth(f); {
	case w > frameWarmMin:
		return finishWarm
	case w < frameCoolMax:
		return finishCool
	default:
		return finishNeutral
	}
}

var depthPhrases = map[Depth]string{
	Fair:   "Your fair complexion",
	Light:  "Your light complexion",
	Medium: "Your medium complexion",
	Tan:    "Your tan complexion",
	Deep:   "Your deep complexion",
}

var undertonePhrases = map[Undertone]string{
	Warm:    "golden, warm undertones",
	Cool:    "rosy, cool undertones",
	Neutral: "balanced, neutral undertones",
}

// finishPhrases is keyed by skin undertone, then by the top match's finish.
var finishPhrases = map[Undertone]map[finishTone]string{
	Warm: {
		finishWarm:    "%s echoes that warmth for a naturally harmonious look",
		finishCool:    "%s adds a crisp contrast that makes your warmth stand out",
		finishNeutral: "%s sits comfortably alongside your warmth without competing",
	},
	Cool: {
		finishWarm:    "%s brings a touch of warmth that lifts your cool colouring",
		finishCool:    "%s mirrors your cool tones for a clean, cohesive finish",
		finishNeutral: "%s frames your cool tones softly and evenly",
	},
	Neutral: {
		finishWarm:    "%s adds gentle warmth, a finish neutral skin carries easily",
		finishCool:    "%s adds a cool accent that your balanced tones carry easily",
		finishNeutral: "%s keeps the look understated and balanced",
	},
}

// Reasoning builds the explanation for a Colour Match result from fixed
// phrase tables. The same inputs always produce the same text.
func Reasoning(tone SkinClassification, top Colourway) string {
	depth, ok := depthPhrases[tone.Depth]
	if !ok {
		depth = depthPhrases[Medium]
	}
	under, ok := undertonePhrases[tone.Undertone]
	if !ok {
		under = undertonePhrases[Neutral]
	}
	byFinish, ok := finishPhrases[tone.Undertone]
	if !ok {
		byFinish = finishPhrases[Neutral]
	}

	name := top.Name
	if name == "" {
		name = top.ID
	}
	return fmt.Sprintf("%s has %s. %s.", depth, under, fmt.Sprintf(byFinish[finishOf(top)], name))
}
