package notify

import (
	"regexp"
	"strings"
)

var linkRe = regexp.MustCompile(`https?://`)

// maxLinks is the number of links a comment may carry before the heuristic
// treats it as link spam.
const maxLinks = 4

var spamPhrases = []string{
	"free nitro",
	"free robux",
	"crypto giveaway",
	"click here to claim",
	"limited time offer",
}

// LooksLikeSpam applies the link-flood and phrase heuristics. Flagged
// comments stay visible to their author but are hidden from listings until
// a moderator reviews them.
func LooksLikeSpam(body string) bool {
	if len(linkRe.FindAllStringIndex(body, -1)) > maxLinks {
		return true
	}
	lower := strings.ToLower(body)
	for _, phrase := range spamPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
