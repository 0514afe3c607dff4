package leaserenew

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Predicate decides whether an element qualifies for a Strategy.
type Predicate func(ctx context.Context, el Element) (bool, error)

// Strategy is one way of locating an element: a CSS selector plus the
// condition a matched element must meet.
type Strategy struct {
	Name     string
	Selector string
	Match    Predicate
}

// Cascade is an ordered list of strategies; earlier strategies win.
type Cascade []Strategy

// Any accepts every element.
func Any(context.Context, Element) (bool, error) {
	return true, nil
}

// Clickable accepts visible, enabled elements.
func Clickable(ctx context.Context, el Element) (bool, error) {
	visible, err := el.Visible(ctx)
	if err != nil || !visible {
		return false, err
	}
	return el.Enabled(ctx)
}

// VisibleWithText accepts visible elements whose text contains substr, ignoring case.
func VisibleWithText(substr string) Predicate {
	substr = strings.ToLower(substr)
	return func(ctx context.Context, el Element) (bool, error) {
		visible, err := el.Visible(ctx)
		if err != nil || !visible {
			return false, err
		}
		text, err := el.Text(ctx)
		if err != nil {
			return false, err
		}
		return strings.Contains(strings.ToLower(text), substr), nil
	}
}

// Selectors turns a selector list into a cascade sharing one predicate.
func Selectors(match Predicate, selectors ...string) Cascade {
	c := make(Cascade, len(selectors))
	for i, sel := range selectors {
		c[i] = Strategy{Name: fmt.Sprintf("selector %q", sel), Selector: sel, Match: match}
	}
	return c
}

// probe returns the first qualifying element currently matching s.
// Lookup and predicate errors count as no match.
func (s Strategy) probe(ctx context.Context, b Browser) Element {
	elements, err := b.Elements(ctx, s.Selector)
	if err != nil {
		return nil
	}
	for _, el := range elements {
		ok, err := s.Match(ctx, el)
		if err == nil && ok {
			return el
		}
	}
	return nil
}

// First tries each strategy in order and returns the first qualifying element
// along with the strategy that found it. With wait > 0 every strategy is
// polled for up to wait before moving on; otherwise each is probed once.
func (c Cascade) First(ctx context.Context, b Browser, wait, interval time.Duration) (Element, Strategy, error) {
	for _, s := range c {
		el, err := s.await(ctx, b, wait, interval)
		if err != nil {
			return nil, Strategy{}, err
		}
		if el != nil {
			return el, s, nil
		}
	}
	return nil, Strategy{}, ErrElementNotFound
}

func (s Strategy) await(ctx context.Context, b Browser, wait, interval time.Duration) (Element, error) {
	if el := s.probe(ctx, b); el != nil || wait <= 0 {
		return el, ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	timeout := time.NewTimer(wait)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout.C:
			return nil, nil
		case <-ticker.C:
			if el := s.probe(ctx, b); el != nil {
				return el, nil
			}
		}
	}
}

// sleep pauses for d unless ctx is done first.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
