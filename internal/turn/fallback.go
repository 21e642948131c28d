package turn

import "github.com/elicitlabs/elicit/internal/prompt"

// fallbacks keep a turn alive when the provider is unreachable: after
// retry exhaustion the user still gets a domain-appropriate question
// instead of an error page.
var fallbacks = map[prompt.Domain]string{
	prompt.DomainBusiness: "I had trouble reaching the model just now. While we wait, could you tell me more about who your ideal customer is and what problem they need solved?",
	prompt.DomainProduct:  "I had trouble reaching the model just now. In the meantime, could you describe the user this product serves and the moment they would reach for it?",
	prompt.DomainCreative: "I had trouble reaching the model just now. While we wait, could you share more about the feeling or experience you want your audience to walk away with?",
	prompt.DomainResearch: "I had trouble reaching the model just now. In the meantime, could you say more about the question you are trying to answer and why it matters now?",
	prompt.DomainCoding:   "I had trouble reaching the model just now. While we wait, could you describe who will use this system and what the most important operation is?",
}

// Fallback returns the static sentence used when retries are exhausted.
func Fallback(d prompt.Domain) string {
	return fallbacks[d]
}
