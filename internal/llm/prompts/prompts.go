// Package prompts renders the comment-suggestion prompts from embedded
// text/template files.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/reportwriter/internal/model"
)

//go:embed templates/*.txt
var embedded embed.FS

// FS holds the built-in prompt templates.
var FS fs.FS = embedded

var teacherNotesRegex = regexp.MustCompile(`(?i)</?\s*teacher-notes\b[^>]*>`)

// maxNotesRunes bounds how much free text from the author reaches the model.
const maxNotesRunes = 2000

// Tone is a suggestion prompt variant.
type Tone string

const (
	ToneFormal  Tone = "formal"
	ToneWarm    Tone = "warm"
	ToneConcise Tone = "concise"
)

// Tones lists the available tones.
var Tones = []Tone{ToneFormal, ToneWarm, ToneConcise}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[Tone]*template.Template
)

// IsValidTone checks if a tone name is valid.
func IsValidTone(v string) bool {
	for _, t := range Tones {
		if Tone(v) == t {
			return true
		}
	}
	return false
}

// SuggestData holds template data for suggestion prompts.
type SuggestData struct {
	SectionName string
	SectionType model.SectionType
	KeyLabel    string
	Key         string
	Instruction string
	Count       int
	Tokens      []string
	Existing    []string
	Notes       string
}

// Load parses the prompt templates from fsys. It runs once per process.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		templates = make(map[Tone]*template.Template)
		funcs := template.FuncMap{"lower": strings.ToLower}
		for _, t := range Tones {
			file := "templates/suggest_" + string(t) + ".txt"
			content, err := fs.ReadFile(fsys, file)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", file, err)
				return
			}
			tmpl, err := template.New(string(t)).Funcs(funcs).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", file, err)
				return
			}
			templates[t] = tmpl
		}
	})
	return loadErr
}

// BuildSuggestPrompt renders the prompt asking for new comments for one pool
// of a section.
func BuildSuggestPrompt(tone Tone, sec *model.Section, key string, count int, notes string) (string, error) {
	if templates == nil {
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := templates[tone]
	if !ok {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("invalid tone: " + string(tone))
	}

	data := SuggestData{
		SectionName: sec.Name,
		SectionType: sec.Type,
		KeyLabel:    KeyLabel(sec.Type),
		Key:         key,
		Count:       count,
		Tokens:      Tokens(sec.Type),
		Existing:    nonBlank(sec.Pool(key)),
		Notes:       sanitizeNotes(notes),
	}
	if d, ok := sec.Data.(*model.PersonalisedCommentData); ok {
		data.Instruction = d.Instruction
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// KeyLabel names what a section's pool keys mean.
func KeyLabel(t model.SectionType) string {
	switch t {
	case model.SectionRatedComment:
		return "RATING"
	case model.SectionAssessmentComment:
		return "PERFORMANCE"
	case model.SectionPersonalisedComment:
		return "HEADING"
	case model.SectionNextSteps:
		return "FOCUS AREA"
	}
	return "TOPIC"
}

// Tokens lists the placeholders, besides [Name], a section type supports.
func Tokens(t model.SectionType) []string {
	switch t {
	case model.SectionAssessmentComment:
		return []string{"[Score]"}
	case model.SectionPersonalisedComment:
		return []string{"[personalised information]"}
	}
	return nil
}

func nonBlank(list []string) []string {
	var out []string
	for _, s := range list {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func sanitizeNotes(notes string) string {
	notes = teacherNotesRegex.ReplaceAllString(notes, "")
	notes = strings.TrimSpace(notes)
	if utf8.RuneCountInString(notes) > maxNotesRunes {
		runes := []rune(notes)
		notes = string(runes[:maxNotesRunes])
	}
	return notes
}
