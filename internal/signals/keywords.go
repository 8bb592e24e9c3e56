package signals

// DefaultUrgencyKeywords are matched as case-insensitive substrings; each distinct hit adds weight.
var DefaultUrgencyKeywords = []string{
	"urgent", "emergency", "immediately", "asap", "critical",
	"broken", "not working", "help", "problem", "issue",
	"can't", "cannot", "won't", "doesn't work", "failed",
	"error", "crash", "lost", "missing",
}

// DefaultFrustrationKeywords mark a customer as frustrated on any single hit.
var DefaultFrustrationKeywords = []string{
	"frustrated", "angry", "terrible", "awful", "worst",
	"ridiculous", "unacceptable", "disappointed", "waste",
	"useless", "horrible", "pathetic", "disgusting",
}
