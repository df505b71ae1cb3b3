package puzzle

import (
	"fmt"
	"regexp"
	"time"
)

const (
	VariantTandem  = "tandem"
	VariantCryptic = "cryptic"

	SchemaVersion = 1

	// TandemItems is the fixed number of emoji-pair items in a Tandem puzzle.
	TandemItems = 4
	// CrypticHints is the fixed number of hints shipped with a Cryptic puzzle.
	CrypticHints = 4
)

const (
	HintFodder     = "fodder"
	HintIndicator  = "indicator"
	HintDefinition = "definition"
	HintLetter     = "letter"
)

// DateLayout is the civil date format used for puzzle identity and history keys.
const DateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Puzzle is an immutable server-authored record. Exactly one of Tandem or
// Cryptic is populated, selected by Variant.
type Puzzle struct {
	ID            string          `json:"id" yaml:"id"`
	SchemaVersion int             `json:"schema_version" yaml:"schema_version"`
	Number        int             `json:"number" yaml:"number"`
	Date          string          `json:"date" yaml:"date"`
	Variant       string          `json:"variant" yaml:"variant"`
	Tandem        *TandemPayload  `json:"tandem,omitempty" yaml:"tandem,omitempty"`
	Cryptic       *CrypticPayload `json:"cryptic,omitempty" yaml:"cryptic,omitempty"`
}

type TandemPayload struct {
	Items            []TandemItem `json:"items" yaml:"items"`
	Theme            string       `json:"theme" yaml:"theme"`
	DifficultyRating int          `json:"difficulty_rating,omitempty" yaml:"difficulty_rating,omitempty"`
}

type TandemItem struct {
	EmojiPair string `json:"emoji_pair" yaml:"emoji_pair"`
	Answer    string `json:"answer" yaml:"answer"`
}

type CrypticPayload struct {
	Clue        string `json:"clue" yaml:"clue"`
	Answer      string `json:"answer" yaml:"answer"`
	Length      int    `json:"length" yaml:"length"`
	WordPattern []int  `json:"word_pattern,omitempty" yaml:"word_pattern,omitempty"`
	Hints       []Hint `json:"hints" yaml:"hints"`
}

type Hint struct {
	Type string `json:"type" yaml:"type"`
	Text string `json:"text" yaml:"text"`
}

// Summary is a lightweight archive listing entry.
type Summary struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Date   string `json:"date"`
}

func (p Puzzle) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("puzzle id is required")
	}
	if !datePattern.MatchString(p.Date) {
		return fmt.Errorf("puzzle %s: invalid date %q", p.ID, p.Date)
	}
	if _, err := time.Parse(DateLayout, p.Date); err != nil {
		return fmt.Errorf("puzzle %s: invalid date %q", p.ID, p.Date)
	}
	switch p.Variant {
	case VariantTandem:
		if p.Tandem == nil {
			return fmt.Errorf("puzzle %s: missing tandem payload", p.ID)
		}
		return p.Tandem.validate(p.ID)
	case VariantCryptic:
		if p.Cryptic == nil {
			return fmt.Errorf("puzzle %s: missing cryptic payload", p.ID)
		}
		return p.Cryptic.validate(p.ID)
	default:
		return fmt.Errorf("puzzle %s: unknown variant %q", p.ID, p.Variant)
	}
}

func (t *TandemPayload) validate(id string) error {
	if len(t.Items) != TandemItems {
		return fmt.Errorf("puzzle %s: expected %d items, got %d", id, TandemItems, len(t.Items))
	}
	for i, item := range t.Items {
		if item.Answer == "" {
			return fmt.Errorf("puzzle %s: item %d has empty answer", id, i)
		}
		if item.EmojiPair == "" {
			return fmt.Errorf("puzzle %s: item %d has empty emoji pair", id, i)
		}
	}
	return nil
}

func (c *CrypticPayload) validate(id string) error {
	if c.Clue == "" {
		return fmt.Errorf("puzzle %s: empty clue", id)
	}
	if c.Answer == "" {
		return fmt.Errorf("puzzle %s: empty answer", id)
	}
	if c.Length <= 0 {
		return fmt.Errorf("puzzle %s: invalid length %d", id, c.Length)
	}
	if len(c.WordPattern) > 0 {
		sum := 0
		for _, n := range c.WordPattern {
			if n <= 0 {
				return fmt.Errorf("puzzle %s: invalid word pattern entry %d", id, n)
			}
			sum += n
		}
		if sum != c.Length {
			return fmt.Errorf("puzzle %s: word pattern sums to %d, length is %d", id, sum, c.Length)
		}
	}
	if len(c.Hints) != CrypticHints {
		return fmt.Errorf("puzzle %s: expected %d hints, got %d", id, CrypticHints, len(c.Hints))
	}
	for i, h := range c.Hints {
		switch h.Type {
		case HintFodder, HintIndicator, HintDefinition, HintLetter:
		default:
			return fmt.Errorf("puzzle %s: hint %d has unknown type %q", id, i, h.Type)
		}
		if h.Text == "" {
			return fmt.Errorf("puzzle %s: hint %d has empty text", id, i)
		}
	}
	return nil
}

// ParseDate parses a civil date in the puzzle date layout.
func ParseDate(date string) (time.Time, error) {
	return time.Parse(DateLayout, date)
}

// NumberForDate maps a civil date to its puzzle number given the date of
// puzzle #1 for the variant.
func NumberForDate(epoch, date string) (int, error) {
	days, err := DaysBetween(epoch, date)
	if err != nil {
		return 0, err
	}
	return days + 1, nil
}

// DaysBetween returns the count of civil days from a to b (negative when b
// precedes a). Both arguments use the puzzle date layout.
func DaysBetween(a, b string) (int, error) {
	ta, err := ParseDate(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseDate(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}
