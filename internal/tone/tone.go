// Package tone maps a sentiment polarity score to a tone and picks one of the
// canned messages written for that tone.
package tone

import (
	"math/rand/v2"
)

// Tone is the coarse classification of a polarity score.
type Tone string

const (
	Positive Tone = "positive"
	Negative Tone = "negative"
	Neutral  Tone = "neutral"
)

const (
	messageThreshold = 0.2
	bannerThreshold  = 0.05
)

var pools = map[Tone][]string{
	Positive: {
		"¡Qué bien! Se nota mucha energía positiva en tu texto.",
		"Tus palabras transmiten alegría. Sigue compartiendo lo que te hace bien.",
		"Da gusto leer algo tan optimista. ¡Gracias por contarlo!",
		"Hay entusiasmo en cada línea. Que ese ánimo te acompañe todo el día.",
		"Tu texto contagia buen humor. ¡Celebra esos momentos!",
	},
	Negative: {
		"Parece que estás pasando por un momento difícil. No estás solo.",
		"Lamento que las cosas no vayan bien. Hablarlo con alguien puede ayudar.",
		"Se percibe tristeza en tus palabras. Date tiempo y sé amable contigo.",
		"Los días complicados también pasan. Cuida de ti mientras tanto.",
		"Gracias por expresar lo que sientes. Pedir apoyo es un paso valiente.",
	},
	Neutral: {
		"Tu texto suena equilibrado y sereno.",
		"No se aprecia una emoción marcada. Un tono tranquilo y objetivo.",
		"El mensaje es bastante neutral. Ideal para informar con claridad.",
		"Un texto sobrio y mesurado. A veces la calma dice mucho.",
	},
}

var banners = map[Tone]string{
	Positive: "El texto tiene un tono positivo 😄",
	Negative: "El texto tiene un tono negativo 😟",
	Neutral:  "El texto es neutral 😐",
}

// Classify maps a polarity score to a tone: above 0.2 is positive, below
// -0.2 is negative and anything in between is neutral.
func Classify(score float64) Tone {
	return classify(score, messageThreshold)
}

// Banner returns the short tone line shown above the results. It uses a
// narrower neutral band (±0.05) than the message pools.
func Banner(score float64) (Tone, string) {
	t := classify(score, bannerThreshold)
	return t, banners[t]
}

func classify(score, threshold float64) Tone {
	switch {
	case score > threshold:
		return Positive
	case score < -threshold:
		return Negative
	default:
		return Neutral
	}
}

// Pool returns a copy of the canned messages for t.
func Pool(t Tone) []string {
	msgs := pools[t]
	out := make([]string, len(msgs))
	copy(out, msgs)
	return out
}

// Source is the randomness used to pick a message. IntN returns a value in
// [0, n).
type Source interface {
	IntN(n int) int
}

type defaultSource struct{}

func (defaultSource) IntN(n int) int { return rand.IntN(n) }

// Picker chooses a message uniformly at random from the pool matching a
// score.
type Picker struct {
	src Source
}

// NewPicker returns a Picker drawing from src, or from the process default
// random source when src is nil.
func NewPicker(src Source) *Picker {
	if src == nil {
		src = defaultSource{}
	}
	return &Picker{src: src}
}

// Pick classifies score and returns one message from that tone's pool.
func (p *Picker) Pick(score float64) (Tone, string) {
	t := Classify(score)
	msgs := pools[t]
	return t, msgs[p.src.IntN(len(msgs))]
}
