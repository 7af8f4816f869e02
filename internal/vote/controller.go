// Package vote is the optimistic vote button: the displayed temperature moves
// before the server answers and is corrected or rolled back afterwards.
package vote

import (
	"context"
	"sync"

	"github.com/pauljones0/maodevaca/internal/models"
)

type State int

const (
	Idle State = iota
	Optimistic
	Confirmed
	Reverted
)

func (s State) String() string {
	switch s {
	case Optimistic:
		return "optimistic"
	case Confirmed:
		return "confirmed"
	case Reverted:
		return "reverted"
	}
	return "idle"
}

// Voter records a vote and returns the server's temperature.
type Voter interface {
	Vote(ctx context.Context, dealID int64) (int, error)
}

// Controller holds one card's vote state for the lifetime of a client session.
type Controller struct {
	mu          sync.Mutex
	dealID      int64
	temperature int
	voted       bool
	state       State
	voter       Voter
}

func NewController(deal models.Deal, voter Voter) *Controller {
	return &Controller{
		dealID:      deal.ID,
		temperature: deal.Temperature,
		voter:       voter,
	}
}

// Temperature is the value the card should display right now.
func (c *Controller) Temperature() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.temperature
}

func (c *Controller) Voted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voted
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Vote runs one interaction. Without a caller it returns ErrNotAuthenticated so
// the UI can prompt a sign-in. A repeat click after a vote is ignored. Any
// failure from the Voter rolls the optimistic increment back and is returned.
func (c *Controller) Vote(ctx context.Context, caller *models.Identity) error {
	if caller == nil {
		return models.ErrNotAuthenticated
	}

	c.mu.Lock()
	if c.voted {
		c.mu.Unlock()
		return nil
	}
	c.voted = true
	c.temperature++
	c.state = Optimistic
	c.mu.Unlock()

	temp, err := c.voter.Vote(ctx, c.dealID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.temperature--
		c.voted = false
		c.state = Reverted
		return err
	}
	c.temperature = temp
	c.state = Confirmed
	return nil
}
