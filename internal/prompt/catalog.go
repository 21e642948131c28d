// Package prompt holds the static prompt catalog: the domain and intensity
// vocabulary and the system prompts keyed by them. Pure data, no state.
package prompt

import (
	"errors"
	"fmt"
	"strings"
)

// Domain selects the questioning persona for a discovery session.
type Domain string

const (
	DomainBusiness Domain = "business"
	DomainProduct  Domain = "product"
	DomainCreative Domain = "creative"
	DomainResearch Domain = "research"
	DomainCoding   Domain = "coding"
)

// Intensity selects how deep the questioning goes.
type Intensity string

const (
	IntensityBasic Intensity = "basic"
	IntensityDeep  Intensity = "deep"
)

// ErrUnknownDomain indicates a domain outside the catalog.
var ErrUnknownDomain = errors.New("unknown domain")

// ErrUnknownIntensity indicates an intensity outside the catalog.
var ErrUnknownIntensity = errors.New("unknown intensity")

// Domains returns every domain in the catalog, in stable order.
func Domains() []Domain {
	return []Domain{DomainBusiness, DomainProduct, DomainCreative, DomainResearch, DomainCoding}
}

// ParseDomain validates a raw domain string.
func ParseDomain(raw string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(raw)))
	switch d {
	case DomainBusiness, DomainProduct, DomainCreative, DomainResearch, DomainCoding:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDomain, raw)
	}
}

// ParseIntensity validates a raw intensity string. Empty input defaults
// to basic.
func ParseIntensity(raw string) (Intensity, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return IntensityBasic, nil
	}
	i := Intensity(trimmed)
	switch i {
	case IntensityBasic, IntensityDeep:
		return i, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownIntensity, raw)
	}
}

// personas describe the questioning role per domain.
var personas = map[Domain]string{
	DomainBusiness: "You are a seasoned business strategist interviewing a founder about a venture they want to explore. Focus on the customer, the problem being solved, the market context, and how the venture could sustain itself.",
	DomainProduct:  "You are an experienced product manager interviewing a colleague about a product or feature idea. Focus on the target user, the underlying need, success criteria, and trade-offs against alternatives.",
	DomainCreative: "You are a thoughtful creative director interviewing an author about a creative project. Focus on the intended audience, the emotional core, influences, and the constraints that shape the work.",
	DomainResearch: "You are a rigorous research advisor interviewing a researcher about a study they want to design. Focus on the research question, prior work, methodology, and what evidence would change their mind.",
	DomainCoding:   "You are a pragmatic staff engineer interviewing a developer about a system they want to build. Focus on the users of the system, functional requirements, constraints, and failure modes.",
}

// intensityGuidance adjusts questioning depth.
var intensityGuidance = map[Intensity]string{
	IntensityBasic: "Ask one clear, approachable question at a time. Keep each question short and avoid jargon. Build gently on earlier answers.",
	IntensityDeep:  "Ask one probing question at a time. Challenge assumptions, ask for concrete evidence and examples, and follow up on vague answers before moving on.",
}

// systemFrame is shared by every domain/intensity combination.
const systemFrame = "Ask exactly one question per reply, and nothing else. " +
	"Never answer your own questions and never produce the final deliverable during questioning. " +
	"When you believe you have gathered enough material for a thorough brief, say that you have what you need and that the user can ask to generate the final output."

// System returns the system prompt for a validated domain and intensity.
func System(d Domain, i Intensity) string {
	return personas[d] + "\n\n" + intensityGuidance[i] + "\n\n" + systemFrame
}

// SynthesisSystem returns the system prompt for distilling a transcript
// into a brief.
func SynthesisSystem(d Domain) string {
	return fmt.Sprintf(
		"You are an analyst distilling a %s discovery interview into a brief. "+
			"Write a 200-300 word brief in plain prose that captures the core goal, the key context, "+
			"the target audience, the requirements, and the success criteria that surfaced in the conversation. "+
			"Write only the brief itself: no headings, no preamble, no commentary.", d)
}

// GenerationSystem returns the system prompt for expanding a brief into
// the final ideas.
func GenerationSystem(d Domain) string {
	return fmt.Sprintf(
		"You are a %s expert turning a project brief into concrete, actionable ideas. "+
			"Produce 3-5 distinct ideas grounded in the brief, each with a short title and a paragraph "+
			"explaining the idea and why it fits. "+
			"After the prose, include a fenced ```json code block containing an object of the form "+
			`{"ideas": [{"title": "...", "description": "..."}]}`+" mirroring the ideas.", d)
}
