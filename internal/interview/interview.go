// Package interview holds the weekly rider questionnaire and the ways its
// answers can be supplied.
package interview

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// NoResponse stands in for an empty answer
const NoResponse = "No response"

// ErrAborted is returned when the rider cancels the interview
var ErrAborted = errors.New("interview aborted")

// Question is one interview prompt
type Question struct {
	Key    string
	Prompt string
	Label  string // heading used in the report
}

// Questions is the weekly questionnaire, in asking order
var Questions = []Question{
	{"overall_feel", "How did you feel about your training week?", "Overall Feel"},
	{"fatigue", "How would you rate your fatigue (1-10)?", "Fatigue"},
	{"form_fitness", "Did you feel stronger or weaker compared to last week?", "Form & Fitness"},
	{"highlights", "What was your best ride or workout and why?", "Highlights"},
	{"struggles", "Any rides you found unexpectedly hard? Why?", "Struggles"},
	{"recovery", "How was your sleep, nutrition, and recovery?", "Recovery"},
	{"external_factors", "Any stress, illness, travel, or life events affecting training?", "External Factors"},
	{"weather_conditions", "Did weather or environment play a role in performance?", "Weather & Conditions"},
	{"equipment_notes", "Any bike, gear, or tech issues this week?", "Equipment Notes"},
	{"goals_checkin", "Did this week move you toward your long-term goals? Why or why not?", "Goals Check-in"},
}

// Answer pairs a question with the rider's response
type Answer struct {
	Question
	Text string
}

// Answers keeps question order
type Answers []Answer

// Get returns the answer text for key
func (a Answers) Get(key string) (string, bool) {
	for _, ans := range a {
		if ans.Key == key {
			return ans.Text, true
		}
	}
	return "", false
}

// Source supplies answers for a set of questions
type Source interface {
	Collect(questions []Question) (Answers, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(questions []Question) (Answers, error)

func (f SourceFunc) Collect(questions []Question) (Answers, error) { return f(questions) }

// Build pairs every question with its response from lookup, substituting
// NoResponse for blanks.
func Build(questions []Question, lookup func(key string) string) Answers {
	out := make(Answers, 0, len(questions))
	for _, q := range questions {
		text := strings.TrimSpace(lookup(q.Key))
		if text == "" {
			text = NoResponse
		}
		out = append(out, Answer{Question: q, Text: text})
	}
	return out
}

// Static answers from a fixed map keyed by question key
func Static(responses map[string]string) Source {
	return SourceFunc(func(questions []Question) (Answers, error) {
		return Build(questions, func(key string) string { return responses[key] }), nil
	})
}

// Skip answers nothing; the report shows the interview section as not taken
func Skip() Source {
	return SourceFunc(func([]Question) (Answers, error) { return nil, nil })
}

// LoadFile reads answers from a TOML file of key = "answer" pairs
func LoadFile(path string) (Source, error) {
	responses := map[string]string{}
	meta, err := toml.DecodeFile(path, &responses)
	if err != nil {
		return nil, fmt.Errorf("reading answers %s: %w", path, err)
	}

	known := map[string]bool{}
	for _, q := range Questions {
		known[q.Key] = true
	}
	for _, key := range meta.Keys() {
		if !known[key.String()] {
			return nil, fmt.Errorf("answers %s: unknown question %q", path, key.String())
		}
	}
	return Static(responses), nil
}
