// Package content handles script briefs, generated script parsing and the
// reading-time budget that keeps scripts inside the short-video window.
package content

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// MaxReadingTime is the hard ceiling for a script read aloud.
	MaxReadingTime = 90 * time.Second
	// ReadingSpeedWPM is the assumed narration pace.
	ReadingSpeedWPM = 150
	// MaxWords is the word budget implied by the two constants above.
	MaxWords = int(MaxReadingTime/time.Second) * ReadingSpeedWPM / 60
)

// Brief describes the trending video a script should be derived from.
type Brief struct {
	VideoID        string   `json:"video_id"`
	Title          string   `json:"title"`
	ChannelTitle   string   `json:"channel_title"`
	ViewCount      int64    `json:"view_count"`
	CategoryName   string   `json:"category_name"`
	Tags           []string `json:"tags"`
	Description    string   `json:"description"`
	EngagementRate float64  `json:"engagement_rate"`
}

// Generator produces raw markdown script text for a brief. Implementations
// wrap whatever text model is configured.
type Generator interface {
	Generate(ctx context.Context, brief Brief) (string, error)
}

// Script is a parsed, validated script package ready for production.
type Script struct {
	VideoID         string        `json:"video_id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Content         string        `json:"content"`
	Tags            []string      `json:"tags"`
	Hook            string        `json:"hook"`
	NarrativePoints []string      `json:"narrative_points"`
	CTA             string        `json:"cta"`
	WordCount       int           `json:"word_count"`
	ReadingTime     time.Duration `json:"reading_time"`
	GeneratedAt     time.Time     `json:"generated_at"`
	Model           string        `json:"model"`
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// ReadingTime estimates how long the text takes to read aloud.
func ReadingTime(text string) time.Duration {
	words := WordCount(text)
	return time.Duration(float64(words) / ReadingSpeedWPM * float64(time.Minute))
}

// ValidateReadingTime rejects text that cannot be read within the ceiling.
func ValidateReadingTime(text string) error {
	rt := ReadingTime(text)
	if rt > MaxReadingTime {
		return fmt.Errorf("script reads in %s (%d words), limit is %s", rt.Round(time.Second), WordCount(text), MaxReadingTime)
	}
	return nil
}

var (
	titleRe          = regexp.MustCompile(`^#\s+(.+)$`)
	sectionRe        = regexp.MustCompile(`^##\s+(.+)$`)
	narrativeRe      = regexp.MustCompile(`^###\s*(\d+)\.\s*(.+)$`)
	descriptionRe    = regexp.MustCompile(`\*\*Description:\*\*\s*(.*)`)
	tagsRe           = regexp.MustCompile(`\*\*Tags:\*\*\s*(.*)`)
	tagTokenRe       = regexp.MustCompile(`[\w&-]+(?:\s+[\w&-]+)*`)
	maxTags          = 15
	ctaSectionNumber = "8"
)

// ParseMarkdown extracts the structured parts of a generated script. Missing
// sections come back empty; the raw content is preserved on the Script by the
// caller.
func ParseMarkdown(raw string) Script {
	var s Script
	lines := strings.Split(raw, "\n")

	type section struct {
		heading string
		number  string
		body    []string
	}
	var sections []*section
	var current *section

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if m := titleRe.FindStringSubmatch(trimmed); m != nil && s.Title == "" {
			s.Title = strings.TrimSpace(m[1])
			current = nil
			continue
		}
		if m := narrativeRe.FindStringSubmatch(trimmed); m != nil {
			current = &section{heading: strings.TrimSpace(m[2]), number: m[1]}
			sections = append(sections, current)
			continue
		}
		if m := sectionRe.FindStringSubmatch(trimmed); m != nil {
			current = &section{heading: strings.TrimSpace(m[1])}
			sections = append(sections, current)
			continue
		}

		if m := descriptionRe.FindStringSubmatch(trimmed); m != nil {
			s.Description = strings.TrimSpace(m[1])
			continue
		}
		if m := tagsRe.FindStringSubmatch(trimmed); m != nil {
			s.Tags = parseTags(m[1])
			continue
		}

		if current != nil && trimmed != "" {
			current.body = append(current.body, trimmed)
		}
	}

	for _, sec := range sections {
		body := strings.Join(sec.body, "\n")
		switch {
		case sec.number != "":
			s.NarrativePoints = append(s.NarrativePoints, sec.heading+": "+body)
			if sec.number == ctaSectionNumber && strings.Contains(strings.ToLower(sec.heading), "call-to-action") {
				s.CTA = body
			}
		case strings.HasPrefix(strings.ToLower(sec.heading), "hook"):
			s.Hook = body
		}
	}
	return s
}

func parseTags(text string) []string {
	text = strings.ReplaceAll(text, "#", "")
	text = strings.ReplaceAll(text, ",", "\n")
	var tags []string
	for _, token := range strings.Split(text, "\n") {
		m := tagTokenRe.FindString(strings.TrimSpace(token))
		if m == "" {
			continue
		}
		tags = append(tags, m)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

// BuildScript parses raw generated markdown into a Script and enforces the
// reading-time budget.
func BuildScript(videoID, raw, model string, brief Brief) (Script, error) {
	if err := ValidateReadingTime(raw); err != nil {
		return Script{}, err
	}
	s := ParseMarkdown(raw)
	if s.Title == "" {
		s.Title = brief.Title
	}
	s.VideoID = videoID
	s.Content = raw
	s.WordCount = WordCount(raw)
	s.ReadingTime = ReadingTime(raw)
	s.GeneratedAt = time.Now().UTC()
	s.Model = model
	return s, nil
}
