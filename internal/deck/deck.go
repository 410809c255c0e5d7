// Package deck walks a lesson's flashcards one at a time.
package deck

import "github.com/five82/quizwhiz/internal/api"

// SwipeThreshold is the horizontal distance a swipe must exceed to turn
// the card.
const SwipeThreshold = 50

// Deck is a linear cursor over cards with a flip flag for the current card.
// It is not safe for concurrent use; the UI owns it.
type Deck struct {
	cards   []api.Flashcard
	index   int
	flipped bool
}

// New returns a deck positioned on the first card.
func New(cards []api.Flashcard) *Deck {
	d := &Deck{}
	d.Replace(cards)
	return d
}

// Len returns the number of cards.
func (d *Deck) Len() int { return len(d.cards) }

// Empty reports whether there is nothing to study.
func (d *Deck) Empty() bool { return len(d.cards) == 0 }

// Current returns the card under the cursor.
func (d *Deck) Current() (api.Flashcard, bool) {
	if d.Empty() {
		return api.Flashcard{}, false
	}
	return d.cards[d.index], true
}

// Face returns the visible text of the current card.
func (d *Deck) Face() string {
	c, ok := d.Current()
	if !ok {
		return ""
	}
	if d.flipped {
		return c.BackText
	}
	return c.FrontText
}

// Flipped reports whether the back is showing.
func (d *Deck) Flipped() bool { return d.flipped }

// Flip turns the current card over.
func (d *Deck) Flip() {
	if !d.Empty() {
		d.flipped = !d.flipped
	}
}

// Next moves forward and shows the front. It reports whether it moved.
func (d *Deck) Next() bool {
	if d.index+1 >= len(d.cards) {
		return false
	}
	d.index++
	d.flipped = false
	return true
}

// Prev moves back and shows the front. It reports whether it moved.
func (d *Deck) Prev() bool {
	if d.index == 0 || d.Empty() {
		return false
	}
	d.index--
	d.flipped = false
	return true
}

// Swipe navigates for a horizontal drag of dx. A drag right goes to the
// previous card and a drag left to the next one; short drags do nothing.
func (d *Deck) Swipe(dx int) bool {
	switch {
	case dx > SwipeThreshold:
		return d.Prev()
	case dx < -SwipeThreshold:
		return d.Next()
	default:
		return false
	}
}

// Position returns the zero-based index of the current card.
func (d *Deck) Position() int { return d.index }

// Progress returns the one-based position and total, e.g. 3 of 10.
func (d *Deck) Progress() (int, int) {
	if d.Empty() {
		return 0, 0
	}
	return d.index + 1, len(d.cards)
}

// Replace swaps in a new card list, keeping the cursor in range. The flip
// resets when the card under the cursor changes.
func (d *Deck) Replace(cards []api.Flashcard) {
	prev, had := d.Current()
	d.cards = append([]api.Flashcard(nil), cards...)
	if d.index >= len(d.cards) {
		d.index = max(len(d.cards)-1, 0)
	}
	if cur, ok := d.Current(); !ok || !had || cur.ID != prev.ID {
		d.flipped = false
	}
}
