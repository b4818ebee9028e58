// Package types defines the shared domain types for the voice audit pipeline.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Category is the funnel-stage taxonomy for prompts.
// The four values are fixed; scoring weights depend on them.
type Category string

const (
	CategoryBrainstorming     Category = "brainstorming"
	CategoryIdentifiedProblem Category = "identified_problem"
	CategorySolutionComparing Category = "solution_comparing"
	CategoryInfoSeeking       Category = "info_seeking"
)

// Categories lists all prompt categories in canonical order.
var Categories = []Category{
	CategoryBrainstorming,
	CategoryIdentifiedProblem,
	CategorySolutionComparing,
	CategoryInfoSeeking,
}

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryBrainstorming, CategoryIdentifiedProblem, CategorySolutionComparing, CategoryInfoSeeking:
		return true
	}
	return false
}

// Weight returns the fixed funnel-stage weight for the category.
// The assignment is a lookup, never derived from data.
func (c Category) Weight() float64 {
	switch c {
	case CategoryBrainstorming:
		return 1.0
	case CategoryIdentifiedProblem:
		return 1.3
	case CategorySolutionComparing:
		return 1.7
	case CategoryInfoSeeking:
		return 0.9
	default:
		return 1.0
	}
}

// Engine identifies a simulated AI-search surface. Google aggregates
// organic, shopping and immersive channels; Bing is organic only.
type Engine string

const (
	EngineGoogle Engine = "google"
	EngineBing   Engine = "bing"
)

// Engines lists the engines every prompt is checked against.
var Engines = []Engine{EngineGoogle, EngineBing}

// PromptID is the composite identifier "{category}:{sequenceKey}".
type PromptID string

// NewPromptID builds the composite identifier for a category and sequence key.
func NewPromptID(category Category, seq int) PromptID {
	return PromptID(fmt.Sprintf("%s:%d", category, seq))
}

// Parts splits the identifier into category and sequence key.
// Returns an error for identifiers that do not follow the composite form.
func (id PromptID) Parts() (Category, int, error) {
	idx := strings.LastIndex(string(id), ":")
	if idx < 0 {
		return "", 0, fmt.Errorf("malformed prompt id %q", id)
	}
	category := Category(id[:idx])
	if !category.Valid() {
		return "", 0, fmt.Errorf("unknown category in prompt id %q", id)
	}
	seq, err := strconv.Atoi(string(id[idx+1:]))
	if err != nil {
		return "", 0, fmt.Errorf("malformed sequence key in prompt id %q", id)
	}
	return category, seq, nil
}

// Prompt is a natural-language query representing a simulated AI-search
// user intent. Text and category are immutable after creation.
type Prompt struct {
	ID       PromptID `json:"id"`
	Category Category `json:"category"`
	Sequence int      `json:"sequence"`
	Text     string   `json:"text"`
	Volume   int      `json:"volume,omitempty"`
}

// ResultStatus is the lifecycle state of a per-engine presence check.
// A result is created as checking and transitions once to done or error.
type ResultStatus string

const (
	StatusChecking ResultStatus = "checking"
	StatusDone     ResultStatus = "done"
	StatusError    ResultStatus = "error"
)

// Terminal reports whether the status is done or error.
func (s ResultStatus) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// ShoppingBlock holds the shopping-channel presence signal for a prompt.
type ShoppingBlock struct {
	HasCompany     bool     `json:"hasCompany"`
	CompetitorsHit []string `json:"competitorsHit,omitempty"`
	Sellers        []string `json:"sellers,omitempty"`
}

// ImmersiveBlock holds the immersive-product (brand-based) presence signal.
type ImmersiveBlock struct {
	HasCompany     bool     `json:"hasCompany"`
	Brands         []string `json:"brands,omitempty"`
	CompetitorsHit []string `json:"competitorsHit,omitempty"`
	Sellers        []string `json:"sellers,omitempty"`
}

// EngineResult is the outcome of one presence check for one (prompt, engine)
// pair. Owned by the orchestrator; read-only downstream.
type EngineResult struct {
	Status         ResultStatus    `json:"status"`
	Top10          []string        `json:"top10,omitempty"`
	HasCompany     bool            `json:"hasCompany"`
	CompetitorsHit []string        `json:"competitorsHit,omitempty"`
	Immersive      *ImmersiveBlock `json:"immersive,omitempty"`
	Shopping       *ShoppingBlock  `json:"shopping,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// ResultSet maps engine name to result for one prompt.
type ResultSet map[Engine]*EngineResult

// Terminal reports whether the prompt has a terminal status on every engine.
func (rs ResultSet) Terminal() bool {
	for _, engine := range Engines {
		r, ok := rs[engine]
		if !ok || !r.Status.Terminal() {
			return false
		}
	}
	return true
}

// ProfileStatus is the dashboard-visible lifecycle of a profile pipeline.
type ProfileStatus string

const (
	ProfileIdle    ProfileStatus = "idle"
	ProfileRunning ProfileStatus = "running"
	ProfileDone    ProfileStatus = "done"
	ProfileError   ProfileStatus = "error"
)

// Profile is the audited company plus its competitor set.
type Profile struct {
	ID          string        `json:"id"`
	CompanyName string        `json:"companyName"`
	CompanyURL  string        `json:"companyUrl"`
	Competitors []string      `json:"competitors,omitempty"`
	Region      string        `json:"region,omitempty"`
	Status      ProfileStatus `json:"status,omitempty"`
	Progress    int           `json:"progress,omitempty"`
	LastError   string        `json:"lastError,omitempty"`
}
