package ads

import "math/rand"

// sendChance is the probability of posting anything after an ad break.
// Staying silent sometimes keeps the bot from spamming every single break.
const sendChance = 0.65

var staticPool = []string{
	"Thanks for bearing with the ads! Follow so you never miss a stream! 🙏",
	"Ads keep the lights on. Appreciate the patience — back soon!",
	"Stretch break! Grab some water. Back in a moment.",
	"While we're here — drop a follow if you're enjoying the stream!",
}

// LatestVideo is the most recent upload on the configured YouTube channel,
// used to plug the video while ads run.
type LatestVideo struct {
	Title string
	URL   string
}

// PickAdMessage returns a chat message to post after an ad break, or "" to
// stay silent. latest may be nil when YouTube is not configured.
func PickAdMessage(latest *LatestVideo) string {
	if rand.Float64() > sendChance {
		return ""
	}
	pool := append([]string(nil), staticPool...)
	if latest != nil {
		pool = append(pool, "Catch my latest video while the ads run: "+latest.Title+" → "+latest.URL)
	}
	return pool[rand.Intn(len(pool))]
}

var returnPool = []string{
	"We're back! Welcome back everyone 👋",
	"Ad break over — thanks for sticking around! 🙌",
	"And we're live again! Thanks for the patience 💪",
	"Back to it! Thanks for hanging tight ✌️",
	"Ads done — let's get back to it! 🚀",
}

// PickReturnMessage returns a message to post when the ad break ends.
func PickReturnMessage() string {
	return returnPool[rand.Intn(len(returnPool))]
}
