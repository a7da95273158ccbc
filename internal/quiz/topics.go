package quiz

import (
	"fmt"
	"strings"
)

// Section groups topics in the topic picker.
type Section string

const (
	SectionQuant   Section = "quantitative"
	SectionLogical Section = "logical"
	SectionVerbal  Section = "verbal"
)

// AllSections returns all sections in display order.
func AllSections() []Section {
	return []Section{SectionQuant, SectionLogical, SectionVerbal}
}

// SectionDisplayName returns a human-readable name for a section.
func SectionDisplayName(s Section) string {
	switch s {
	case SectionQuant:
		return "Quantitative Aptitude"
	case SectionLogical:
		return "Logical Reasoning"
	case SectionVerbal:
		return "Verbal Ability"
	default:
		return string(s)
	}
}

// Topic is a practice topic. Name is the exact string sent to the backend.
type Topic struct {
	Name    string
	Section Section
}

var topics = []Topic{
	{"Percentages", SectionQuant},
	{"Profit and Loss", SectionQuant},
	{"Simple and Compound Interest", SectionQuant},
	{"Ratio and Proportion", SectionQuant},
	{"Averages", SectionQuant},
	{"Time and Work", SectionQuant},
	{"Time, Speed and Distance", SectionQuant},
	{"Number System", SectionQuant},
	{"Permutations and Combinations", SectionQuant},
	{"Probability", SectionQuant},
	{"Blood Relations", SectionLogical},
	{"Coding-Decoding", SectionLogical},
	{"Direction Sense", SectionLogical},
	{"Seating Arrangement", SectionLogical},
	{"Syllogisms", SectionLogical},
	{"Number Series", SectionLogical},
	{"Synonyms and Antonyms", SectionVerbal},
	{"Sentence Correction", SectionVerbal},
	{"Reading Comprehension", SectionVerbal},
	{"Para Jumbles", SectionVerbal},
}

// AllTopics returns every topic in display order.
func AllTopics() []Topic {
	out := make([]Topic, len(topics))
	copy(out, topics)
	return out
}

// BySection returns the topics of one section.
func BySection(s Section) []Topic {
	var out []Topic
	for _, t := range topics {
		if t.Section == s {
			out = append(out, t)
		}
	}
	return out
}

// LookupTopic finds a topic by name, ignoring case and surrounding space.
func LookupTopic(name string) (Topic, error) {
	n := strings.TrimSpace(name)
	for _, t := range topics {
		if strings.EqualFold(t.Name, n) {
			return t, nil
		}
	}
	return Topic{}, fmt.Errorf("unknown topic %q", name)
}
